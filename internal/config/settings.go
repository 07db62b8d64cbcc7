package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Timezone database for minimal container images.

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"golang.org/x/text/language"
)

// Settings is the runtime configuration, read once at start-up.
type Settings struct {
	TelegramToken string
	ChatID        string

	RosterSource      string
	SpreadsheetID     string
	SheetRange        string
	GoogleCredentials []byte
	VCardURL          string
	VCardUser         string
	VCardPass         string
	VCardPath         string // Local .vcf file, read instead of VCardURL.

	Location     *time.Location
	NotifyHour   int
	NotifyMinute int
	Language     language.Tag

	Transport     string
	PublicURL     string
	WebhookSecret string
	Port          string
}

// LoadEnvFile populates the process environment from a dotenv file.
// Variables already set in the environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug(MsgEnvFileSkipped,
			LogKeyComponent, CompConfig,
			LogKeyFile, path)
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%s: %w", ErrEnvFile, err)
	}
	return nil
}

// Load builds Settings from getenv (usually os.Getenv), falling back to the
// system keyring for secrets and to defaults for everything optional.
func Load(getenv func(string) string) (*Settings, error) {
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	s := &Settings{
		TelegramToken: secret(getenv, EnvTelegramToken, KeyringUserTelegram),
		ChatID:        env(EnvChatID, ""),
		RosterSource:  strings.ToLower(env(EnvRosterSource, SourceModeSheets)),
		SpreadsheetID: env(EnvSpreadsheetID, ""),
		SheetRange:    env(EnvSheetRange, DefaultSheetRange),
		VCardURL:      env(EnvVCardURL, ""),
		VCardUser:     env(EnvVCardUser, ""),
		VCardPass:     env(EnvVCardPass, ""),
		VCardPath:     env(EnvVCardPath, ""),
		Transport:     strings.ToLower(env(EnvTransport, TransportWebhook)),
		PublicURL:     publicURL(env),
		WebhookSecret: env(EnvWebhookSecret, ""),
		Port:          env(EnvPort, DefaultPort),
	}

	if s.TelegramToken == "" {
		return nil, errors.New(ErrTokenMissing)
	}
	if s.ChatID == "" {
		return nil, errors.New(ErrChatIDMissing)
	}

	switch s.RosterSource {
	case SourceModeSheets:
		if s.SpreadsheetID == "" {
			return nil, errors.New(ErrSheetIDMissing)
		}
		creds := secret(getenv, EnvGoogleCredentials, KeyringUserGoogle)
		if creds == "" {
			return nil, errors.New(ErrCredsMissing)
		}
		s.GoogleCredentials = []byte(creds)
	case SourceModeVCard:
		if s.VCardURL == "" && s.VCardPath == "" {
			return nil, errors.New(ErrVCardMissing)
		}
	default:
		return nil, fmt.Errorf("%s: %q", ErrModeUnsupport, s.RosterSource)
	}

	switch s.Transport {
	case TransportWebhook:
		if s.PublicURL == "" {
			return nil, errors.New(ErrPublicURLMissing)
		}
	case TransportPolling:
	default:
		return nil, fmt.Errorf("%s: %q", ErrTransportUnsup, s.Transport)
	}

	loc, err := time.LoadLocation(env(EnvTimezone, DefaultTimezone))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrTimezone, err)
	}
	s.Location = loc

	s.NotifyHour, s.NotifyMinute, err = ParseNotifyTime(env(EnvNotifyTime, DefaultNotifyTime))
	if err != nil {
		return nil, err
	}

	s.Language, err = language.Parse(env(EnvLanguage, DefaultLanguage))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrLanguage, err)
	}

	if err := ValidatePort(s.Port); err != nil {
		return nil, err
	}

	return s, nil
}

// ParseNotifyTime parses a 24h "HH:MM" wall-clock time.
func ParseNotifyTime(value string) (hour, minute int, err error) {
	t, err := time.Parse(NotifyTimeLayout, strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", ErrNotifyTime, err)
	}
	return t.Hour(), t.Minute(), nil
}

// ValidatePort checks that port is a number in the TCP port range.
func ValidatePort(port string) error {
	if port == "" {
		return errors.New(ErrPortRequired)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return errors.New(ErrPortNumber)
	}
	if n < MinPort || n > MaxPort {
		return errors.New(ErrPortRange)
	}
	return nil
}

// secret reads key from the environment and falls back to the keyring
// entry user under KeyringService.
func secret(getenv func(string) string, key, user string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	slog.Debug(MsgSecretKeyring,
		LogKeyComponent, CompConfig,
		LogKeyKey, key)
	v, err := keyring.Get(KeyringService, user)
	if err != nil {
		slog.Debug(MsgSecretFail,
			LogKeyComponent, CompConfig,
			LogKeyUser, user,
			LogKeyError, err)
		return ""
	}
	return v
}

// publicURL resolves the externally reachable base URL, preferring an
// explicit PUBLIC_URL over the hosting platform's variables.
func publicURL(env func(key, fallback string) string) string {
	if u := env(EnvPublicURL, ""); u != "" {
		return strings.TrimSuffix(u, "/")
	}
	if u := env(EnvRenderURL, ""); u != "" {
		return strings.TrimSuffix(u, "/")
	}
	if host := env(EnvRenderHost, ""); host != "" {
		return SchemeHTTPS + "://" + host
	}
	return ""
}

// Package messages renders chat texts from the embedded locale files.
package messages

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/birthday-bot/internal/config"
	"github.com/tartampluch/birthday-bot/internal/engine"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

const (
	localeDir    = "locales"
	localePrefix = "active."
	localeSuffix = ".json"
)

// Picker returns an index in [0, n). Tests pin it for deterministic output.
type Picker func(n int) int

// Renderer turns occurrences into localized message text.
type Renderer struct {
	localizer *i18n.Localizer
	pick      Picker
	lang      language.Tag
}

// NewRenderer loads every embedded locale and selects lang.
// A nil pick selects templates uniformly at random.
func NewRenderer(lang language.Tag, pick Picker) (*Renderer, error) {
	bundle, langs, err := loadBundle()
	if err != nil {
		return nil, err
	}

	base, _ := lang.Base()
	found := false
	for _, l := range langs {
		if l == base.String() {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%s: %s", config.ErrLocaleMissing, lang)
	}

	if pick == nil {
		pick = rand.IntN
	}

	return &Renderer{
		localizer: i18n.NewLocalizer(bundle, lang.String()),
		pick:      pick,
		lang:      lang,
	}, nil
}

// Languages lists the language codes of the embedded locale files.
func Languages() []string {
	_, langs, err := loadBundle()
	if err != nil {
		return nil
	}
	return langs
}

func loadBundle() (*i18n.Bundle, []string, error) {
	bundle := i18n.NewBundle(language.Ukrainian)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir(localeDir)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", config.ErrLocalesAccess, err)
	}

	var langs []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, localePrefix) || !strings.HasSuffix(name, localeSuffix) {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, localePrefix), localeSuffix)
		if _, err := bundle.LoadMessageFileFS(localeFS, localeDir+"/"+name); err != nil {
			return nil, nil, fmt.Errorf("%s: %s: %w", config.ErrLocaleLoad, name, err)
		}
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode)
		langs = append(langs, langCode)
	}
	return bundle, langs, nil
}

// Language returns the active language.
func (r *Renderer) Language() language.Tag {
	return r.lang
}

// Notification renders a randomly chosen template of the occurrence's tier.
// It returns "" for TierNone.
func (r *Renderer) Notification(rec engine.BirthdayRecord, occ engine.Occurrence) string {
	prefix := tierKey(occ.Tier)
	if prefix == "" {
		return ""
	}
	i := r.pick(config.TemplatePoolSize) + 1
	return r.msg(fmt.Sprintf(config.FormatTemplateID, prefix, i), r.templateData(rec, occ))
}

// Variants renders every template of the occurrence's tier, in pool order.
func (r *Renderer) Variants(rec engine.BirthdayRecord, occ engine.Occurrence) []string {
	prefix := tierKey(occ.Tier)
	if prefix == "" {
		return nil
	}
	data := r.templateData(rec, occ)
	out := make([]string, 0, config.TemplatePoolSize)
	for i := 1; i <= config.TemplatePoolSize; i++ {
		out = append(out, r.msg(fmt.Sprintf(config.FormatTemplateID, prefix, i), data))
	}
	return out
}

// Upcoming renders the numbered upcoming birthdays list, or the
// "nothing found" text for an empty list.
func (r *Renderer) Upcoming(list []engine.Upcoming) string {
	if len(list) == 0 {
		return r.msg(config.TKeyUpcomingEmpty, nil)
	}

	var b strings.Builder
	b.WriteString(r.msg(config.TKeyUpcomingHeader, map[string]any{"Count": len(list)}))
	b.WriteString("\n\n")
	for i, u := range list {
		data := r.templateData(u.Record, u.Occurrence)
		data["Index"] = i + 1
		b.WriteString(r.msg(config.TKeyUpcomingLine, data))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(r.msg(config.TKeyUpcomingFooter, nil))
	return b.String()
}

// QueryFailed is the reply sent when the roster cannot be read.
func (r *Renderer) QueryFailed() string {
	return r.msg(config.TKeyQueryFailed, nil)
}

// Help is the reply to /start and /help.
func (r *Renderer) Help() string {
	return r.msg(config.TKeyHelp, nil)
}

// Summary renders a calendar event title.
func (r *Renderer) Summary(name string, age int) string {
	data := map[string]any{"Name": name, "Age": age}
	if age == 0 {
		return r.msg(config.TKeyEvtSummaryBirth, data)
	}
	return r.msg(config.TKeyEvtSummary, data)
}

// Date formats a calendar date as day and month name, e.g. "7 березня".
func (r *Renderer) Date(t time.Time) string {
	month := r.msg(fmt.Sprintf("%s%d", config.TKeyMonthPrefix, int(t.Month())), nil)
	return r.msg(config.TKeyFormatDate, map[string]any{"Day": t.Day(), "Month": month})
}

func (r *Renderer) templateData(rec engine.BirthdayRecord, occ engine.Occurrence) map[string]any {
	wishlist := rec.Wishlist
	if wishlist == config.WishlistNotProvided {
		wishlist = r.msg(config.TKeyWishlistMissing, nil)
	}
	return map[string]any{
		"Name":     rec.Name,
		"Date":     r.Date(occ.NextDate),
		"Age":      occ.AgeReached,
		"Wishlist": wishlist,
	}
}

// msg translates a key. A missing key is logged and returned verbatim.
func (r *Renderer) msg(key string, data map[string]any) string {
	out, err := r.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err)
		return key
	}
	return out
}

func tierKey(t engine.Tier) string {
	switch t {
	case engine.TierSevenDays:
		return config.TKeyNotifySeven
	case engine.TierThreeDays:
		return config.TKeyNotifyThree
	case engine.TierZeroDays:
		return config.TKeyNotifyZero
	default:
		return ""
	}
}

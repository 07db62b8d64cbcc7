package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Birthday-Bot/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName             = "Birthday Bot"
	AppID               = "com.github.tartampluch.birthday-bot"
	KeyringService      = "birthday-bot"
	KeyringUserTelegram = "telegram"
	KeyringUserGoogle   = "google"
	DefaultBindAddr     = "0.0.0.0"
	LogFileName         = "bot.log"
	DefaultEnvFile      = ".env"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagEnvFile      = "env-file"
	FlagRunOnce      = "run-once"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescEnvFile  = "Load environment variables from this file if it exists"
	FlagDescRunOnce  = "Run the daily birthday check once and exit"
	MsgVersionOutput = "%s version %s (commit %s, %s/%s)\n"
)

// -----------------------------------------------------------------------------
// Environment Variables
// -----------------------------------------------------------------------------

const (
	EnvTelegramToken     = "TELEGRAM_TOKEN"
	EnvChatID            = "CHAT_ID"
	EnvRosterSource      = "ROSTER_SOURCE"
	EnvSpreadsheetID     = "SPREADSHEET_ID"
	EnvSheetRange        = "SHEET_RANGE"
	EnvGoogleCredentials = "GOOGLE_CREDENTIALS"
	EnvVCardURL          = "VCARD_URL"
	EnvVCardUser         = "VCARD_USER"
	EnvVCardPass         = "VCARD_PASS"
	EnvVCardPath         = "VCARD_PATH"
	EnvTimezone          = "TIMEZONE"
	EnvNotifyTime        = "NOTIFY_TIME"
	EnvLanguage          = "LANGUAGE"
	EnvTransport         = "TRANSPORT"
	EnvPublicURL         = "PUBLIC_URL"
	EnvRenderURL         = "RENDER_EXTERNAL_URL"
	EnvRenderHost        = "RENDER_EXTERNAL_HOSTNAME"
	EnvWebhookSecret     = "WEBHOOK_SECRET"
	EnvPort              = "PORT"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	SourceModeSheets  = "sheets"
	SourceModeVCard   = "vcard"
	TransportWebhook  = "webhook"
	TransportPolling  = "polling"
	DefaultSheetRange = "Лист1!A:C"
	DefaultTimezone   = "Europe/Kyiv"
	DefaultNotifyTime = "09:00"
	DefaultLanguage   = "uk"
	DefaultPort       = "8080"
	DefaultLeapYear   = 2000 // Leap year fallback for dates like --02-29
	UIDSalt           = "birthday-bot-v1-"

	// WishlistNotProvided is stored on a record whose wishlist cell is missing or blank.
	WishlistNotProvided = "not provided"

	// Roster columns.
	ColName     = 0
	ColDate     = 1
	ColWishlist = 2

	// Cron specs.
	CalendarRefreshSpec = "@hourly"
	JobDaily            = "daily-birthdays"
	JobCalendar         = "calendar-refresh"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyNotifySeven     = "notify_7d" // Pool, suffixed with _1.._N
	TKeyNotifyThree     = "notify_3d"
	TKeyNotifyZero      = "notify_0d"
	TKeyWishlistMissing = "wishlist_missing"
	TKeyUpcomingHeader  = "upcoming_header" // Requires Count
	TKeyUpcomingLine    = "upcoming_line"   // Requires Index, Date, Name, Age, Wishlist
	TKeyUpcomingFooter  = "upcoming_footer"
	TKeyUpcomingEmpty   = "upcoming_empty"
	TKeyQueryFailed     = "query_failed"
	TKeyHelp            = "help"
	TKeyFormatDate      = "format_date" // Requires Day, Month
	TKeyMonthPrefix     = "month_"      // Suffixed with 1..12
	TKeyEvtSummary      = "event_summary_age"
	TKeyEvtSummaryBirth = "event_summary_birth"

	// TemplatePoolSize is the number of interchangeable templates per tier.
	TemplatePoolSize = 3
	FormatTemplateID = "%s_%d"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Birthday Bot//Engine//EN"
	ICalCalName   = "Birthdays"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "birthdaybot"

	// iCal/vCard Fields
	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	VCardBDAY = "BDAY"
	VCardFN   = "FN"
	VCardN    = "N"
	VCardNote = "NOTE"

	DefaultICalRefresh = 1 * time.Hour
)

// AlarmTriggers mirror the notification tiers: a week before, three days before, on the day.
var AlarmTriggers = []string{"-P7D", "-P3D", "PT0S"}

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Extensions
// -----------------------------------------------------------------------------

const (
	// RosterDateLayout is the only layout accepted in the roster date column.
	RosterDateLayout = "2006-01-02"

	// Date layouts used for parsing vCard BDAY fields
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	// Notify time layout (HH:MM, 24h).
	NotifyTimeLayout = "15:04"

	// Limits
	MinPort = 1
	MaxPort = 65535

	// UID Generation
	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s-%d@%s"

	// File Extensions
	ExtVCF = ".vcf"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 16 * 1024 * 1024 // 16MB
	MaxWebhookBodySize  = 1024 * 1024
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	AddrSeparator       = ":"

	RouteHealth   = "/healthz"
	RouteRunDaily = "/run-daily"
	RouteWebhook  = "/telegram"
	RouteCalendar = "/calendar.ics"
)

// -----------------------------------------------------------------------------
// Telegram Bot API
// -----------------------------------------------------------------------------

const (
	TelegramAPI          = "https://api.telegram.org"
	TelegramMaxRunes     = 4096
	SendRetryLimit       = 5
	PollTimeout          = 30 * time.Second
	PollErrorBackoff     = 5 * time.Second
	MethodSendMessage    = "sendMessage"
	MethodSetWebhook     = "setWebhook"
	MethodDeleteWebhook  = "deleteWebhook"
	MethodGetUpdates     = "getUpdates"
	MethodGetMe          = "getMe"
	HeaderTelegramSecret = "X-Telegram-Bot-Api-Secret-Token"
	RedactedToken        = "[REDACTED]"

	CmdBirthdays = "/birthdays"
	CmdStart     = "/start"
	CmdHelp      = "/help"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderAccept          = "Accept"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeTextPlain       = "text/plain; charset=utf-8"
	MimeJSON            = "application/json"
	MimeNoSniff         = "nosniff"
	MimeVCard           = "text/vcard, text/x-vcard;q=0.9, */*;q=0.5"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrVCardMissing      = "configuration error: vCard URL or path is required"
	ErrFetcherMissing    = "internal error: network fetcher is not initialized"
	ErrModeUnsupport     = "configuration error: unsupported roster source"
	ErrTransportUnsup    = "configuration error: unsupported transport"
	ErrTokenMissing      = "configuration error: telegram token is not set"
	ErrChatIDMissing     = "configuration error: chat id is not set"
	ErrSheetIDMissing    = "configuration error: spreadsheet id is not set"
	ErrCredsMissing      = "configuration error: google credentials are not set"
	ErrPublicURLMissing  = "configuration error: public URL is required for webhook transport"
	ErrTimezone          = "configuration error: unknown timezone"
	ErrNotifyTime        = "configuration error: notify time must be HH:MM"
	ErrLanguage          = "configuration error: invalid language tag"
	ErrEnvFile           = "failed to load env file"
	ErrServerStartup     = "server startup failed"
	ErrServerShutdown    = "server shutdown failed"
	ErrPortRequired      = "server port is required"
	ErrPortNumber        = "server port must be a number"
	ErrPortRange         = "server port must be between 1 and 65535"
	ErrInvalidURL        = "invalid URL structure"
	ErrProtocol          = "unsupported protocol scheme (http/https only)"
	ErrFetchRequest      = "failed to build download request"
	ErrFetchNetwork      = "network error during download"
	ErrFetchStatus       = "download returned unexpected status"
	ErrResponseTooLarge  = "download exceeds size limit"
	ErrRosterFetch       = "failed to fetch roster"
	ErrSheetsClient      = "failed to create sheets client"
	ErrSheetsRead        = "failed to read spreadsheet range"
	ErrVCardParse        = "failed to parse vCard stream"
	ErrICalEncode        = "failed to encode iCalendar data"
	ErrDateParse         = "unable to parse date"
	ErrDispatch          = "failed to dispatch notification"
	ErrTelegramRequest   = "telegram request failed"
	ErrTelegramAPI       = "telegram api error"
	ErrTelegramDecode    = "failed to decode telegram response"
	ErrBotIdentity       = "failed to read bot identity"
	ErrWebhookSetup      = "failed to register webhook"
	ErrScheduleJob       = "failed to schedule job"
	ErrJobFailed         = "scheduled job failed"
	ErrUpdateHandle      = "failed to handle update"
	ErrPollFailed        = "polling for updates failed"
	ErrLogFile           = "failed to open log file"
	ErrCacheDir          = "could not determine user cache dir"
	ErrCreateDir         = "could not create app cache dir"
	ErrAppFailed         = "application failed unexpectedly"
	ErrWriteResp         = "failed to write response body"
	ErrLocaleLoad        = "failed to load locale file"
	ErrLocalesAccess     = "failed to access embedded locales"
	ErrLocaleMissing     = "no locale file for language"
	ErrCalendarRefresh   = "failed to refresh calendar feed"
	ErrWebhookBody       = "failed to decode webhook update"
	ErrWebhookForbidden  = "webhook secret token mismatch"
	ErrDailyCheckPartial = "daily check finished with dispatch errors"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgOK           = "ok"
	HTTPMsgDailyOK      = "daily ok"
	HTTPMsgDailyPartial = "daily ok, %d of %d failed"
	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgInternalErr  = "Internal Server Error"
	HTTPMsgForbidden    = "Forbidden"
	HTTPMsgBadRequest   = "Bad Request"
	HTTPWebhookAck      = `{"ok":true}`
)

// -----------------------------------------------------------------------------
// Fallbacks & Defaults
// -----------------------------------------------------------------------------

const (
	FallbackSummaryAge   = "Birthday: %s (%d)"
	FallbackSummaryBirth = "Birthday: %s (birth)"

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	MsgAppStop         = "Application stopped gracefully"
	MsgAppStarting     = "Starting application"
	MsgServerListen    = "HTTP server listening"
	MsgServerStop      = "Shutting down HTTP server..."
	MsgCacheUpdated    = "Calendar cache updated"
	MsgSkippedCard     = "Skipping malformed vCard"
	MsgSkippedDate     = "Skipping invalid date format"
	MsgSkippedNoYear   = "Skipping birthday without a year"
	MsgSkippedRow      = "Skipping invalid roster row"
	MsgRosterLoaded    = "Roster loaded"
	MsgDailyStarted    = "Daily birthday check started"
	MsgDailyFinished   = "Daily birthday check finished"
	MsgNotifySent      = "Notification dispatched"
	MsgBdayToday       = "Birthday found today"
	MsgGenSuccess      = "Calendar generation successful"
	MsgLocaleSkip      = "Skipping non-locale file"
	MsgLocaleLoaded    = "Locale loaded successfully"
	MsgTransMissing    = "Missing translation key"
	MsgSecretKeyring   = "Secret not in environment, reading keyring"
	MsgSecretFail      = "Keyring lookup failed"
	MsgLogWarning      = "Warning: %s at %s: %v\n"
	MsgRateLimited     = "Sending rate limited, waiting"
	MsgWebhookSet      = "Webhook registered"
	MsgBotIdentity     = "Bot identity resolved"
	MsgPollingStart    = "Long polling started"
	MsgPollingStop     = "Long polling stopped"
	MsgCommand         = "Command received"
	MsgJobScheduled    = "Job scheduled"
	MsgJobStarted      = "Scheduled job started"
	MsgSchedulerStop   = "Scheduler stopped"
	MsgEnvFileSkipped  = "Env file not found, using process environment"
	MsgVCardDownloaded = "vCards downloading"
	MsgDownloadStart   = "Roster download started"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyUser      = "user"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeyCount     = "count"
	LogKeyName      = "name"
	LogKeyDOB       = "date_of_birth"
	LogKeyDuration  = "duration_ms"
	LogKeyRow       = "row"
	LogKeyTier      = "tier"
	LogKeyDays      = "days_until"
	LogKeyChatID    = "chat_id"
	LogKeyMethod    = "method"
	LogKeyWait      = "wait"
	LogKeyCommand   = "command"
	LogKeyJob       = "job"
	LogKeySpec      = "spec"
	LogKeyNext      = "next_run"
	LogKeyTotal     = "total_rows"
	LogKeyFound     = "records"
	LogKeySent      = "sent"
	LogKeyFailed    = "failed"
	LogKeyToday     = "birthdays_today"
	LogKeyRange     = "range"
	LogKeyLength    = "content_length"
	LogKeyLimit     = "limit_bytes"

	// Startup Info Keys
	LogKeyBuild     = "build"
	LogKeyApp       = "app"
	LogKeyVersion   = "version"
	LogKeyCommit    = "commit"
	LogKeyGoVer     = "go_version"
	LogKeyEnv       = "env"
	LogKeyOS        = "os"
	LogKeyArch      = "arch"
	LogKeyPID       = "pid"
	LogKeyTransport = "transport"
	LogKeySource    = "source"
	LogKeyTimezone  = "timezone"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain      = "main"
	CompConfig    = "config"
	CompRoster    = "roster"
	CompNotifier  = "notifier"
	CompCalendar  = "calendar"
	CompServer    = "server"
	CompFetcher   = "fetcher"
	CompSheets    = "sheets"
	CompTelegram  = "telegram"
	CompBot       = "bot"
	CompScheduler = "scheduler"
	CompI18n      = "i18n"
)

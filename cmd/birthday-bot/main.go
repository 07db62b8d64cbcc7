package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/tartampluch/birthday-bot/internal/bot"
	"github.com/tartampluch/birthday-bot/internal/config"
	"github.com/tartampluch/birthday-bot/internal/engine"
	"github.com/tartampluch/birthday-bot/internal/messages"
	"github.com/tartampluch/birthday-bot/internal/scheduler"
	"github.com/tartampluch/birthday-bot/internal/server"
	"github.com/tartampluch/birthday-bot/internal/spreadsheet"
	"github.com/tartampluch/birthday-bot/internal/telegram"
	"golang.org/x/sync/errgroup"
)

// main delegates to runMain so deferred calls (closing the log file) run
// before os.Exit.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
func runMain() int {
	// -------------------------------------------------------------------------
	// 1. CLI Argument Parsing
	// -------------------------------------------------------------------------
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	debugMode := flag.Bool(config.FlagDebug, false, config.FlagDescDebug)
	envFile := flag.String(config.FlagEnvFile, config.DefaultEnvFile, config.FlagDescEnvFile)
	runOnce := flag.Bool(config.FlagRunOnce, false, config.FlagDescRunOnce)
	flag.Parse()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 2. Logging Initialization
	// -------------------------------------------------------------------------
	logCloser := setupLogging(*debugMode)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close()
		}()
	}

	// -------------------------------------------------------------------------
	// 3. Configuration
	// -------------------------------------------------------------------------
	if err := config.LoadEnvFile(*envFile); err != nil {
		slog.Error(config.ErrEnvFile, config.LogKeyComponent, config.CompConfig, config.LogKeyError, err)
		return config.ExitCodeError
	}
	settings, err := config.Load(os.Getenv)
	if err != nil {
		slog.Error(config.ErrAppFailed, config.LogKeyComponent, config.CompConfig, config.LogKeyError, err)
		return config.ExitCodeError
	}

	// -------------------------------------------------------------------------
	// 4. Context & Signal Handling
	// -------------------------------------------------------------------------
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo(settings)

	// -------------------------------------------------------------------------
	// 5. Application Logic
	// -------------------------------------------------------------------------
	if err := run(ctx, settings, *runOnce); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run wires the components and blocks until ctx is cancelled, or returns
// after one check when runOnce is set.
func run(ctx context.Context, s *config.Settings, runOnce bool) error {
	source, err := newRosterSource(ctx, s)
	if err != nil {
		return err
	}

	renderer, err := messages.NewRenderer(s.Language, nil)
	if err != nil {
		return err
	}

	tg := telegram.New(telegram.Config{Token: s.TelegramToken})

	notifier := &engine.Notifier{
		Clock:      engine.RealClock{},
		Location:   s.Location,
		Source:     source,
		Dispatcher: tg,
		ChatID:     s.ChatID,
		Render:     renderer.Notification,
	}

	if runOnce {
		_, err := notifier.RunDailyCheck(ctx)
		return err
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrBotIdentity, err)
	}
	slog.Info(config.MsgBotIdentity, config.LogKeyComponent, config.CompMain, config.LogKeyUser, me.Username)

	b := &bot.Bot{
		Querier:   notifier,
		Replier:   tg,
		Updater:   tg,
		Formatter: renderer,
		Username:  me.Username,
	}

	srv := server.New(s.Port)
	srv.Daily = notifier

	refreshCalendar := func(ctx context.Context) error {
		records, err := notifier.Roster(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", config.ErrCalendarRefresh, err)
		}
		ics, err := engine.BuildCalendar(records, notifier.Today(), renderer.Summary)
		if err != nil {
			return fmt.Errorf("%s: %w", config.ErrCalendarRefresh, err)
		}
		srv.Update(ics)
		return nil
	}

	sched := scheduler.New(s.Location)
	if err := sched.ScheduleDaily(ctx, s.NotifyHour, s.NotifyMinute, config.JobDaily, func(ctx context.Context) error {
		_, err := notifier.RunDailyCheck(ctx)
		return err
	}); err != nil {
		return err
	}
	if err := sched.Schedule(ctx, config.CalendarRefreshSpec, config.JobCalendar, refreshCalendar); err != nil {
		return err
	}

	// A failed first refresh leaves the feed answering 503 until the next tick.
	if err := refreshCalendar(ctx); err != nil {
		slog.Warn(config.ErrCalendarRefresh, config.LogKeyComponent, config.CompMain, config.LogKeyError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	switch s.Transport {
	case config.TransportWebhook:
		srv.Updates = b
		srv.WebhookSecret = s.WebhookSecret
		hook := s.PublicURL + config.RouteWebhook
		if err := tg.SetWebhook(ctx, hook, s.WebhookSecret); err != nil {
			return fmt.Errorf("%s: %w", config.ErrWebhookSetup, err)
		}
		slog.Info(config.MsgWebhookSet, config.LogKeyComponent, config.CompMain, config.LogKeyURL, hook)
	case config.TransportPolling:
		if err := tg.DeleteWebhook(ctx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrWebhookSetup, err)
		}
		g.Go(func() error { return b.Poll(gctx) })
	}

	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})

	return g.Wait()
}

func newRosterSource(ctx context.Context, s *config.Settings) (engine.RosterSource, error) {
	switch s.RosterSource {
	case config.SourceModeVCard:
		return &engine.VCardSource{
			Fetcher: engine.NewHTTPFetcher(),
			URL:     s.VCardURL,
			User:    s.VCardUser,
			Pass:    s.VCardPass,
			Path:    s.VCardPath,
		}, nil
	default:
		return spreadsheet.New(ctx, spreadsheet.Config{
			SpreadsheetID: s.SpreadsheetID,
			Range:         s.SheetRange,
			Credentials:   s.GoogleCredentials,
		})
	}
}

// printVersion outputs the build information to stdout.
func printVersion() {
	fmt.Printf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		config.Commit,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
// Secrets are never logged.
func logStartupInfo(s *config.Settings) {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyCommit, config.Commit),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
		slog.String(config.LogKeySource, s.RosterSource),
		slog.String(config.LogKeyTransport, s.Transport),
		slog.String(config.LogKeyTimezone, s.Location.String()),
		slog.String(config.LogKeyLang, s.Language.String()),
	)
}

// setupLogging configures the default slog logger: JSON to stdout plus a
// best-effort copy in the user's cache directory.
func setupLogging(debugMode bool) io.Closer {
	writers := []io.Writer{os.Stdout}
	var logFile *os.File

	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}

package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tartampluch/birthday-bot/internal/config"
	"github.com/tartampluch/birthday-bot/internal/engine"
	"github.com/tartampluch/birthday-bot/internal/telegram"
)

// DailyRunner runs the notification check.
type DailyRunner interface {
	RunDailyCheck(ctx context.Context) ([]engine.Notification, error)
}

// UpdateHandler answers one Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u telegram.Update) error
}

// cacheItem stores the rendered calendar and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// Server exposes the health probe, the external daily trigger, the
// Telegram webhook and the calendar feed.
type Server struct {
	// cache uses atomic.Pointer for lock-free reads on the hot path.
	cache atomic.Pointer[cacheItem]

	Port     string
	BindAddr string // Defaults to config.DefaultBindAddr.

	// Daily backs /run-daily. The route is not registered when nil.
	Daily DailyRunner
	// Updates backs the webhook. The route is not registered when nil.
	Updates UpdateHandler
	// WebhookSecret must match the secret token header when set.
	WebhookSecret string
}

// New creates a server listening on port.
func New(port string) *Server {
	return &Server{Port: port}
}

// Handler returns the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+config.RouteHealth, s.handleHealth)
	mux.HandleFunc(config.RouteCalendar, s.handleCalendarRequest)
	if s.Daily != nil {
		mux.HandleFunc(http.MethodGet+" "+config.RouteRunDaily, s.handleRunDaily)
	}
	if s.Updates != nil {
		mux.HandleFunc(http.MethodPost+" "+config.RouteWebhook, s.handleWebhook)
	}
	return mux
}

// Start initializes the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := config.ValidatePort(s.Port); err != nil {
		return err
	}

	bind := s.BindAddr
	if bind == "" {
		bind = config.DefaultBindAddr
	}

	srv := &http.Server{
		Addr:         bind + config.AddrSeparator + s.Port,
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, s.Port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// Update atomically replaces the served calendar.
func (s *Server) Update(data []byte) {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	s.cache.Store(&cacheItem{
		data:         data,
		etag:         etag,
		lastModified: time.Now().UTC().Format(http.TimeFormat),
	})

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, config.HTTPMsgOK)
}

// handleRunDaily lets an external scheduler trigger the check, e.g. on
// hosts that sleep between requests. A pass that ran but lost some messages
// still answers 200; the caller cannot fix a chat-side failure by retrying.
func (s *Server) handleRunDaily(w http.ResponseWriter, r *http.Request) {
	notifications, err := s.Daily.RunDailyCheck(r.Context())
	switch {
	case err == nil:
		writeText(w, http.StatusOK, config.HTTPMsgDailyOK)
	case errors.Is(err, engine.ErrPartialDispatch):
		failed := 0
		for _, n := range notifications {
			if n.Err != nil {
				failed++
			}
		}
		slog.Warn(config.ErrDailyCheckPartial,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyCount, len(notifications),
			config.LogKeyFailed, failed,
			config.LogKeyError, err,
		)
		writeText(w, http.StatusOK, fmt.Sprintf(config.HTTPMsgDailyPartial, failed, len(notifications)))
	default:
		slog.Error(config.ErrRosterFetch,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
		writeText(w, http.StatusInternalServerError, config.HTTPMsgInternalErr)
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.WebhookSecret != "" {
		got := r.Header.Get(config.HeaderTelegramSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.WebhookSecret)) != 1 {
			slog.Warn(config.ErrWebhookForbidden, config.LogKeyComponent, config.CompServer)
			http.Error(w, config.HTTPMsgForbidden, http.StatusForbidden)
			return
		}
	}

	var u telegram.Update
	body := http.MaxBytesReader(w, r.Body, config.MaxWebhookBodySize)
	if err := json.NewDecoder(body).Decode(&u); err != nil {
		slog.Warn(config.ErrWebhookBody,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
		http.Error(w, config.HTTPMsgBadRequest, http.StatusBadRequest)
		return
	}

	// Telegram redelivers on non-2xx, so handler failures are only logged.
	if err := s.Updates.HandleUpdate(r.Context(), u); err != nil {
		slog.Error(config.ErrUpdateHandle,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}

	w.Header().Set(config.HeaderContentType, config.MimeJSON)
	_, _ = io.WriteString(w, config.HTTPWebhookAck)
}

// handleCalendarRequest serves the ICS content with HTTP caching support.
func (s *Server) handleCalendarRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	item := s.cache.Load()
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set(config.HeaderContentType, config.MimeTextCalendar)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set(config.HeaderContentType, config.MimeTextPlain)
	w.WriteHeader(status)
	if _, err := io.WriteString(w, msg); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}

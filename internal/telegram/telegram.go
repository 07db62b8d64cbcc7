// Package telegram is a minimal Telegram Bot API client: it sends chat
// messages, manages the webhook and long-polls for updates.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/tartampluch/birthday-bot/internal/config"
)

// Config configures a Client.
type Config struct {
	Token      string
	APIURL     string // Defaults to config.TelegramAPI.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the Bot API.
type Client struct {
	token    string
	apiURL   string
	httpc    *http.Client
	scrubber *strings.Replacer
	slog     *slog.Logger
	sleep    func(context.Context, time.Duration) bool
}

// New returns a Client for the bot identified by cfg.Token.
func New(cfg Config) *Client {
	c := &Client{
		token:  cfg.Token,
		apiURL: strings.TrimSuffix(cfg.APIURL, "/"),
		httpc:  cfg.HTTPClient,
		slog:   cfg.Logger,
		sleep:  sleep,
	}
	if c.apiURL == "" {
		c.apiURL = config.TelegramAPI
	}
	if c.httpc == nil {
		// Long polling holds the request open for up to PollTimeout.
		c.httpc = &http.Client{Timeout: config.HTTPTimeout + config.PollTimeout}
	}
	if c.slog == nil {
		c.slog = slog.Default()
	}
	c.slog = c.slog.With(config.LogKeyComponent, config.CompTelegram)
	if c.token != "" {
		c.scrubber = strings.NewReplacer(c.token, config.RedactedToken)
	}
	return c
}

// Update is an incoming Bot API update. Only messages are decoded.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is a chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// User is a Telegram user or bot.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// Chat identifies a conversation.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

// APIError is a response with "ok": false.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s: %d %s", config.ErrTelegramAPI, e.Method, e.StatusCode, e.Description)
}

type response struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

type sendMessageRequest struct {
	ChatID             string `json:"chat_id"`
	Text               string `json:"text"`
	LinkPreviewOptions struct {
		IsDisabled bool `json:"is_disabled"`
	} `json:"link_preview_options"`
}

// SendMessage sends text to chatID, splitting it into 4096-rune chunks.
// Requests are retried only when Telegram rate limits them.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	req := sendMessageRequest{ChatID: chatID}
	req.LinkPreviewOptions.IsDisabled = true

	for _, chunk := range splitMessage(text) {
		req.Text = chunk

		var err error
		for range config.SendRetryLimit {
			err = c.call(ctx, config.MethodSendMessage, req, nil)
			if err == nil {
				break
			}

			wait, retryable := isRateLimited(err)
			if !retryable {
				break
			}

			c.slog.Warn(config.MsgRateLimited,
				slog.String(config.LogKeyMethod, config.MethodSendMessage),
				slog.String(config.LogKeyChatID, chatID),
				slog.Duration(config.LogKeyWait, wait))
			if !c.sleep(ctx, wait) {
				return ctx.Err()
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// SetWebhook points the bot at url. Telegram echoes secret in the
// X-Telegram-Bot-Api-Secret-Token header of every webhook request.
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	args := map[string]any{
		"url":             webhookURL,
		"allowed_updates": []string{"message"},
	}
	if secret != "" {
		args["secret_token"] = secret
	}
	return c.call(ctx, config.MethodSetWebhook, args, nil)
}

// DeleteWebhook switches the bot back to getUpdates.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, config.MethodDeleteWebhook, map[string]any{}, nil)
}

// GetMe returns the bot's own account.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, config.MethodGetMe, map[string]any{}, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetUpdates long-polls for updates with IDs >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	args := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message"},
	}
	var updates []Update
	if err := c.call(ctx, config.MethodGetUpdates, args, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *Client) call(ctx context.Context, method string, args, result any) error {
	body, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", config.ErrTelegramRequest, method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/bot"+c.token+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %s: %w", config.ErrTelegramRequest, method, c.scrub(err))
	}
	req.Header.Set(config.HeaderContentType, config.MimeJSON)
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", config.ErrTelegramRequest, method, c.scrub(err))
	}
	defer func() { _ = resp.Body.Close() }()

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("%s: %s: %d: %w", config.ErrTelegramDecode, method, resp.StatusCode, err)
	}

	if !r.OK {
		code := r.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return &APIError{
			Method:      method,
			StatusCode:  code,
			Description: r.Description,
			RetryAfter:  time.Duration(r.Parameters.RetryAfter) * time.Second,
		}
	}

	if result != nil {
		if err := json.Unmarshal(r.Result, result); err != nil {
			return fmt.Errorf("%s: %s: %w", config.ErrTelegramDecode, method, err)
		}
	}
	return nil
}

// scrub keeps the bot token out of errors. url.Error embeds the full request URL.
func (c *Client) scrub(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	if c.scrubber == nil {
		return err
	}
	if msg := c.scrubber.Replace(err.Error()); msg != err.Error() {
		return errors.New(msg)
	}
	return err
}

func isRateLimited(err error) (time.Duration, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		return 0, false
	}
	return apiErr.RetryAfter, true
}

func splitMessage(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= config.TelegramMaxRunes {
		return []string{text}
	}

	var chunks []string
	for text != "" {
		if utf8.RuneCountInString(text) <= config.TelegramMaxRunes {
			chunks = append(chunks, text)
			break
		}

		var (
			lastNewline    = -1
			lastWhitespace = -1
			byteCap        = len(text)
			runeCount      int
		)

		for i, r := range text {
			if runeCount == config.TelegramMaxRunes {
				byteCap = i
				break
			}
			runeCount++

			if r == '\n' {
				lastNewline = i
				continue
			}
			if unicode.IsSpace(r) {
				lastWhitespace = i
			}
		}

		splitAt := byteCap
		switch {
		case lastNewline > 0:
			splitAt = lastNewline
		case lastWhitespace > 0:
			splitAt = lastWhitespace
		}

		if chunk := strings.TrimSpace(text[:splitAt]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = strings.TrimSpace(text[splitAt:])
	}

	return chunks
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/birthday-bot/internal/config"
)

// vcardHeader mirrors the spreadsheet header so both sources share ParseRoster.
var vcardHeader = []string{"name", "date", "wishlist"}

// VCardSource reads the roster from a vCard collection, either a local file
// (Path) or a remote document (URL, fetched through Fetcher).
// Each card becomes a row: FN (or N), BDAY as YYYY-MM-DD, NOTE as wishlist.
type VCardSource struct {
	Fetcher Fetcher
	URL     string
	User    string
	Pass    string
	Path    string
}

// Rows implements RosterSource.
func (s *VCardSource) Rows(ctx context.Context) ([][]string, error) {
	reader, err := s.open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	return cardsToRows(ctx, reader)
}

func (s *VCardSource) open(ctx context.Context) (io.ReadCloser, error) {
	switch {
	case s.Path != "":
		return os.Open(s.Path)
	case s.URL != "":
		if s.Fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		return s.Fetcher.Fetch(ctx, s.URL, s.User, s.Pass)
	default:
		return nil, errors.New(config.ErrVCardMissing)
	}
}

// cardsToRows decodes every card of r. Malformed cards and cards without a
// usable birth year are skipped.
func cardsToRows(ctx context.Context, r io.Reader) ([][]string, error) {
	rows := [][]string{vcardHeader}
	decoder := vcard.NewDecoder(r)

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A broken card usually leaves the decoder unable to resynchronize.
			if len(rows) == 1 {
				return nil, fmt.Errorf("%s: %w", config.ErrVCardParse, err)
			}
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompRoster,
				config.LogKeyError, err)
			break
		}

		bday := card.Get(config.VCardBDAY)
		if bday == nil || bday.Value == "" {
			continue
		}

		birthDate, yearKnown, err := parseDate(bday.Value)
		if err != nil {
			slog.Debug(config.MsgSkippedDate,
				config.LogKeyComponent, config.CompRoster,
				config.LogKeyValue, bday.Value)
			continue
		}
		if !yearKnown {
			slog.Debug(config.MsgSkippedNoYear,
				config.LogKeyComponent, config.CompRoster,
				config.LogKeyValue, bday.Value)
			continue
		}

		// Name Strategy: FN (Formatted) > N (Structured)
		name := ""
		if fn := card.Get(config.VCardFN); fn != nil {
			name = fn.Value
		} else if n := card.Get(config.VCardN); n != nil {
			name = strings.TrimSpace(strings.ReplaceAll(n.Value, ";", " "))
		}

		note := ""
		if nt := card.Get(config.VCardNote); nt != nil {
			note = nt.Value
		}

		rows = append(rows, []string{name, birthDate.Format(config.RosterDateLayout), note})
	}

	return rows, nil
}

// parseDate handles various vCard date formats.
func parseDate(value string) (time.Time, bool, error) {
	// Full dates (Year known)
	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}

	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return t, true, nil
		}
	}

	// Truncated dates (Year unknown) - vCard specific
	// Safe leap year fallback
	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			safeDate := time.Date(config.DefaultLeapYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return safeDate, false, nil
		}
	}

	return time.Time{}, false, errors.New(config.ErrDateParse)
}

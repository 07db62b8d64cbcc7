// Package spreadsheet reads the birthday roster from a Google Sheets range.
package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tartampluch/birthday-bot/internal/config"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Config selects the sheet and how to authenticate against it.
type Config struct {
	SpreadsheetID string
	Range         string
	// Credentials is a service account JSON key. It may be empty when
	// Options supply authentication.
	Credentials []byte
	Options     []option.ClientOption
}

// Source is an engine.RosterSource backed by the Sheets API.
type Source struct {
	values *sheets.SpreadsheetsValuesService
	id     string
	rng    string
}

// New builds a read-only Sheets client.
func New(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New(config.ErrSheetIDMissing)
	}

	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	if len(cfg.Credentials) > 0 {
		opts = append(opts, option.WithCredentialsJSON(cfg.Credentials))
	}
	opts = append(opts, cfg.Options...)

	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSheetsClient, err)
	}

	rng := cfg.Range
	if rng == "" {
		rng = config.DefaultSheetRange
	}

	return &Source{values: srv.Spreadsheets.Values, id: cfg.SpreadsheetID, rng: rng}, nil
}

// Rows returns the range as formatted cell text, header row included.
func (s *Source) Rows(ctx context.Context) ([][]string, error) {
	resp, err := s.values.Get(s.id, s.rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", config.ErrSheetsRead, s.rng, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			if cell != nil {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, row)
	}

	slog.Debug(config.MsgRosterLoaded,
		config.LogKeyComponent, config.CompSheets,
		config.LogKeyRange, s.rng,
		config.LogKeyTotal, len(rows))
	return rows, nil
}

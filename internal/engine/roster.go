package engine

import (
	"log/slog"
	"strings"
	"time"

	"github.com/tartampluch/birthday-bot/internal/config"
)

// ParseRoster turns raw spreadsheet rows into records.
// The first row is a header and is always skipped. Rows with an empty name
// or a date that is not YYYY-MM-DD are dropped silently. Order is preserved.
func ParseRoster(rows [][]string) []BirthdayRecord {
	if len(rows) < 2 {
		return nil
	}

	records := make([]BirthdayRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, ok := parseRow(row)
		if !ok {
			slog.Debug(config.MsgSkippedRow,
				config.LogKeyComponent, config.CompRoster,
				config.LogKeyRow, i+2) // 1-based, header included
			continue
		}
		records = append(records, rec)
	}
	return records
}

func parseRow(row []string) (BirthdayRecord, bool) {
	name := cell(row, config.ColName)
	if name == "" {
		return BirthdayRecord{}, false
	}

	date := cell(row, config.ColDate)
	if date == "" {
		return BirthdayRecord{}, false
	}
	// time.Parse rejects impossible dates such as 2001-02-29.
	birthDate, err := time.Parse(config.RosterDateLayout, date)
	if err != nil {
		return BirthdayRecord{}, false
	}

	wishlist := cell(row, config.ColWishlist)
	if wishlist == "" {
		wishlist = config.WishlistNotProvided
	}

	return BirthdayRecord{
		Name:      name,
		BirthDate: birthDate,
		Wishlist:  wishlist,
	}, true
}

// cell returns the trimmed column i, or "" when the row is too short.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

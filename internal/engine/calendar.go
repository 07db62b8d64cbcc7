package engine

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/birthday-bot/internal/config"
)

// SummaryFunc renders the event title for a person turning age.
type SummaryFunc func(name string, age int) string

// BuildCalendar renders the roster as an iCalendar feed with one all-day
// event per record for the previous, current and next year. Each event
// carries alarms matching the notification tiers.
func BuildCalendar(records []BirthdayRecord, now time.Time, summary SummaryFunc) ([]byte, error) {
	cal := ical.NewCalendar()

	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	// RFC 7986 refresh hint.
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	today := DateOf(now)
	todayCount := 0

	for _, rec := range records {
		events, isToday := createEvents(rec, today, summary)
		if isToday {
			todayCount++
			slog.Info(config.MsgBdayToday,
				config.LogKeyComponent, config.CompCalendar,
				config.LogKeyName, rec.Name,
				config.LogKeyDOB, rec.BirthDate.Format(config.RosterDateLayout))
		}
		for _, e := range events {
			e.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, e.Component)
		}
	}

	defer slog.Info(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompCalendar,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyFound, len(records)),
			slog.Int(config.LogKeyToday, todayCount),
		),
	)

	// An empty VCALENDAR fails go-ical validation; serve a valid stub instead.
	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), nil
}

// createEvents builds the events of one record around today's year.
// No event is created for a year before the person was born.
func createEvents(rec BirthdayRecord, today time.Time, summary SummaryFunc) ([]*ical.Event, bool) {
	uidBase := recordUID(rec)
	currentYear := today.Year()
	isToday := false

	var events []*ical.Event
	for _, y := range []int{currentYear - 1, currentYear, currentYear + 1} {
		if y < rec.BirthDate.Year() {
			continue
		}

		// Same leap-day rule as Resolve: Feb 29 becomes March 1.
		eventDate := time.Date(y, rec.BirthDate.Month(), rec.BirthDate.Day(), 0, 0, 0, 0, time.UTC)
		if eventDate.Equal(today) {
			isToday = true
		}

		age := y - rec.BirthDate.Year()
		title := fallbackSummary(rec.Name, age)
		if summary != nil {
			title = summary(rec.Name, age)
		}

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, uidBase, y, config.ICalDomain))
		event.Props.SetText(config.PropSummary, title)
		if rec.Wishlist != config.WishlistNotProvided {
			event.Props.SetText(config.PropDescription, rec.Wishlist)
		}

		dtStartProp := ical.NewProp(config.PropDTStart)
		dtStartProp.SetDate(eventDate)
		event.Props.Set(dtStartProp)

		for _, trigger := range config.AlarmTriggers {
			addAlarm(event, trigger, title)
		}

		events = append(events, event)
	}
	return events, isToday
}

// recordUID derives a stable identifier so calendar clients keep events across refreshes.
func recordUID(rec BirthdayRecord) string {
	input := fmt.Sprintf(config.FormatHashInput, rec.Name, rec.BirthDate.Format(time.RFC3339), config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash[:config.UIDHashLength])
}

func fallbackSummary(name string, age int) string {
	if age == 0 {
		return fmt.Sprintf(config.FallbackSummaryBirth, name)
	}
	return fmt.Sprintf(config.FallbackSummaryAge, name, age)
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid "VALUE=TEXT" param
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}

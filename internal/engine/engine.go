package engine

import (
	"slices"
	"time"
)

// Tier thresholds, in days before the occurrence.
const (
	DaysSeven = 7
	DaysThree = 3
	DaysZero  = 0

	// DefaultTopN is the size of the upcoming birthdays list.
	DefaultTopN = 3
)

// RenderFunc turns a firing occurrence into message text.
type RenderFunc func(rec BirthdayRecord, occ Occurrence) string

// Resolve computes the next occurrence of rec on or after ref.
// Only the calendar date of ref matters.
//
// A February 29 birth date falls on March 1 in non-leap years.
func Resolve(rec BirthdayRecord, ref time.Time) Occurrence {
	today := DateOf(ref)
	next := nextOccurrence(today, rec.BirthDate)
	days := daysBetween(today, next)

	return Occurrence{
		NextDate:   next,
		DaysUntil:  days,
		AgeReached: AgeOn(rec.BirthDate, next),
		Tier:       tierFor(days),
	}
}

// nextOccurrence returns the first date >= today with the birth month and day.
func nextOccurrence(today, birthDate time.Time) time.Time {
	// time.Date normalizes Feb 29 to March 1 when the year is not a leap year.
	candidate := time.Date(today.Year(), birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, time.UTC)
	if candidate.Before(today) {
		candidate = time.Date(today.Year()+1, birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, time.UTC)
	}
	return candidate
}

// AgeOn returns the number of full years between birthDate and on.
// It compares month/day pairs, so it is correct for any date, not only for occurrences.
func AgeOn(birthDate, on time.Time) int {
	age := on.Year() - birthDate.Year()
	if on.Month() < birthDate.Month() ||
		(on.Month() == birthDate.Month() && on.Day() < birthDate.Day()) {
		age--
	}
	return age
}

// daysBetween counts whole days from a to b. Both must come from DateOf.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

func tierFor(days int) Tier {
	switch days {
	case DaysSeven:
		return TierSevenDays
	case DaysThree:
		return TierThreeDays
	case DaysZero:
		return TierZeroDays
	default:
		return TierNone
	}
}

// DailyCheck resolves every record against ref and returns, in roster order,
// one Notification per record whose tier fires. Nothing is dispatched.
func DailyCheck(roster []BirthdayRecord, ref time.Time, render RenderFunc) []Notification {
	var out []Notification
	for _, rec := range roster {
		occ := Resolve(rec, ref)
		if occ.Tier == TierNone {
			continue
		}
		n := Notification{Record: rec, Occurrence: occ}
		if render != nil {
			n.Message = render(rec, occ)
		}
		out = append(out, n)
	}
	return out
}

// TopUpcoming resolves every record and returns the n closest occurrences.
// Ties keep roster order. An empty roster yields an empty result; any other
// roster yields at least one entry.
func TopUpcoming(roster []BirthdayRecord, ref time.Time, n int) []Upcoming {
	if len(roster) == 0 || n <= 0 {
		return nil
	}

	all := make([]Upcoming, 0, len(roster))
	for _, rec := range roster {
		all = append(all, Upcoming{Record: rec, Occurrence: Resolve(rec, ref)})
	}

	slices.SortStableFunc(all, func(a, b Upcoming) int {
		return a.Occurrence.DaysUntil - b.Occurrence.DaysUntil
	})

	if len(all) > n {
		all = all[:n]
	}
	return all
}

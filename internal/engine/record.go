package engine

import "time"

// BirthdayRecord is one validated roster entry.
type BirthdayRecord struct {
	// Name is the trimmed display name. Uniqueness is not enforced.
	Name string

	// BirthDate is the calendar birth date at midnight UTC.
	// The year is only used for age arithmetic.
	BirthDate time.Time

	// Wishlist is free text, or config.WishlistNotProvided.
	Wishlist string
}

// Tier is the notification bucket of an occurrence.
type Tier int

const (
	TierNone Tier = iota
	TierSevenDays
	TierThreeDays
	TierZeroDays
)

func (t Tier) String() string {
	switch t {
	case TierSevenDays:
		return "seven_days"
	case TierThreeDays:
		return "three_days"
	case TierZeroDays:
		return "zero_days"
	default:
		return "none"
	}
}

// Occurrence is the next birthday of a record relative to a reference date.
// It is recomputed on every call and never stored.
type Occurrence struct {
	NextDate   time.Time
	DaysUntil  int
	AgeReached int
	Tier       Tier
}

// Notification is a firing occurrence together with its rendered message.
// Err holds the dispatch error, if any.
type Notification struct {
	Record     BirthdayRecord
	Occurrence Occurrence
	Message    string
	Err        error
}

// Upcoming is one row of the upcoming birthdays query.
type Upcoming struct {
	Record     BirthdayRecord
	Occurrence Occurrence
}

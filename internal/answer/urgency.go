package answer

import (
	"time"

	"github.com/shaibs/reqsearch/internal/query"
)

// Tier is an urgency bucket derived from a record's status date. Ordering
// is by severity, most urgent first.
type Tier int

const (
	TierOverdue Tier = iota
	TierDueToday
	TierDueSoon
	TierDueWeek
	TierNotUrgent
)

var tierOrder = []Tier{TierOverdue, TierDueToday, TierDueSoon, TierDueWeek, TierNotUrgent}

// Classify buckets a status date against now, by calendar day. A zero
// status date means no deadline and classifies as not urgent.
func Classify(statusDate int64, now time.Time) Tier {
	if statusDate <= 0 {
		return TierNotUrgent
	}
	due := time.Unix(statusDate, 0).In(now.Location())
	days := daysBetween(now, due)
	switch {
	case days < 0:
		return TierOverdue
	case days == 0:
		return TierDueToday
	case days <= 3:
		return TierDueSoon
	case days <= 7:
		return TierDueWeek
	}
	return TierNotUrgent
}

// daysBetween counts whole calendar days from a to b, negative when b is in
// the past. Hour-of-day never shifts the bucket.
func daysBetween(a, b time.Time) int {
	ay := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, a.Location())
	by := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, b.Location())
	return int(by.Sub(ay) / (24 * time.Hour))
}

func (t Tier) Label(lang string) string {
	if lang == query.LangHebrew {
		switch t {
		case TierOverdue:
			return "באיחור"
		case TierDueToday:
			return "לטיפול היום"
		case TierDueSoon:
			return "עד 3 ימים"
		case TierDueWeek:
			return "עד שבוע"
		}
		return "לא דחוף"
	}
	switch t {
	case TierOverdue:
		return "overdue"
	case TierDueToday:
		return "due today"
	case TierDueSoon:
		return "due within 3 days"
	case TierDueWeek:
		return "due within 7 days"
	}
	return "not urgent"
}

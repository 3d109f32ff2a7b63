package answer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shaibs/reqsearch/internal/query"
)

func testNow() time.Time {
	return time.Date(2024, 5, 15, 12, 30, 0, 0, time.Local)
}

func onDay(y int, m time.Month, d, hour int) int64 {
	return time.Date(y, m, d, hour, 0, 0, 0, time.Local).Unix()
}

func TestClassifyTiers(t *testing.T) {
	now := testNow()

	cases := []struct {
		name       string
		statusDate int64
		want       Tier
	}{
		{"no date", 0, TierNotUrgent},
		{"yesterday", onDay(2024, 5, 14, 10), TierOverdue},
		{"long overdue", onDay(2024, 3, 1, 10), TierOverdue},
		{"today early morning", onDay(2024, 5, 15, 1), TierDueToday},
		{"today late evening", onDay(2024, 5, 15, 23), TierDueToday},
		{"in three days", onDay(2024, 5, 18, 10), TierDueSoon},
		{"in four days", onDay(2024, 5, 19, 10), TierDueWeek},
		{"in seven days", onDay(2024, 5, 22, 10), TierDueWeek},
		{"in eight days", onDay(2024, 5, 23, 10), TierNotUrgent},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Classify(c.statusDate, now), c.name)
	}
}

func TestClassifyIgnoresHourOfDay(t *testing.T) {
	// same calendar day classifies the same at 00:01 and 23:59
	early := time.Date(2024, 5, 15, 0, 1, 0, 0, time.Local)
	late := time.Date(2024, 5, 15, 23, 59, 0, 0, time.Local)
	due := onDay(2024, 5, 18, 12)

	require.Equal(t, Classify(due, early), Classify(due, late))
}

func TestTierLabels(t *testing.T) {
	require.Equal(t, "באיחור", TierOverdue.Label(query.LangHebrew))
	require.Equal(t, "לטיפול היום", TierDueToday.Label(query.LangHebrew))
	require.Equal(t, "לא דחוף", TierNotUrgent.Label(query.LangHebrew))
	require.Equal(t, "overdue", TierOverdue.Label(query.LangEnglish))
	require.Equal(t, "due within 7 days", TierDueWeek.Label(query.LangEnglish))
}

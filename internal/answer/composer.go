// Package answer composes the user-facing reply for a ranked query result:
// deterministic templates for numeric query types, prompt construction for
// generated ones, and localized fallback messages so the caller never
// returns a blank answer.
package answer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shaibs/reqsearch/internal/model"
	"github.com/shaibs/reqsearch/internal/query"
)

// Answer is the composed reply. Text carries the generated or deterministic
// answer; Message carries a localized notice when there is no answer text.
// Degraded preserves the generation failure reason as metadata; records are
// still returned on that path.
type Answer struct {
	Text     *string                `json:"text,omitempty"`
	Message  string                 `json:"message,omitempty"`
	Records  []*model.ScoredRequest `json:"records"`
	Parsed   *query.Parsed          `json:"parsed"`
	Count    int64                  `json:"count"`
	Degraded string                 `json:"degraded,omitempty"`
}

type Composer struct {
	now func() time.Time
}

func NewComposer(now func() time.Time) *Composer {
	if now == nil {
		now = time.Now
	}
	return &Composer{now: now}
}

// CountRequests renders the verified exact count. The number is computed by
// the caller from an exact-filter query, never by a generator.
func (c *Composer) CountRequests(parsed *query.Parsed, verified int64) string {
	if parsed.Lang == query.LangHebrew {
		switch verified {
		case 0:
			return "לא נמצאו בקשות תואמות."
		case 1:
			return "נמצאה בקשה תואמת אחת."
		}
		return fmt.Sprintf("נמצאו %d בקשות תואמות.", verified)
	}
	switch verified {
	case 0:
		return "No matching requests were found."
	case 1:
		return "Found 1 matching request."
	}
	return fmt.Sprintf("Found %d matching requests.", verified)
}

// CountProjects renders the distinct-project count with per-project
// breakdown, aggregated from the ranked records.
func (c *Composer) CountProjects(parsed *query.Parsed, records []*model.ScoredRequest) string {
	counts := map[string]int{}
	for _, item := range records {
		if item.Request == nil || item.Request.ProjectName == "" {
			continue
		}
		counts[item.Request.ProjectName]++
	}
	buckets := topOf(counts, 0)
	if len(buckets) == 0 {
		if parsed.Lang == query.LangHebrew {
			return "לא נמצאו פרויקטים תואמים."
		}
		return "No matching projects were found."
	}
	parts := make([]string, 0, len(buckets))
	for _, b := range buckets {
		parts = append(parts, fmt.Sprintf("%s (%d)", b.Key, b.Count))
	}
	if parsed.Lang == query.LangHebrew {
		if len(buckets) == 1 {
			return fmt.Sprintf("נמצא פרויקט אחד: %s.", parts[0])
		}
		return fmt.Sprintf("נמצאו %d פרויקטים: %s.", len(buckets), strings.Join(parts, ", "))
	}
	if len(buckets) == 1 {
		return fmt.Sprintf("Found 1 project: %s.", parts[0])
	}
	return fmt.Sprintf("Found %d projects: %s.", len(buckets), strings.Join(parts, ", "))
}

// Urgent renders the records grouped into urgency tiers, most urgent
// first. The bucketing is pure calendar arithmetic.
func (c *Composer) Urgent(parsed *query.Parsed, records []*model.ScoredRequest) string {
	tiers := map[Tier][]string{}
	for _, item := range records {
		if item.Request == nil {
			continue
		}
		tier := Classify(item.Request.StatusDate, c.now())
		tiers[tier] = append(tiers[tier], item.Request.ID)
	}
	var lines []string
	for _, tier := range tierOrder {
		ids := tiers[tier]
		if len(ids) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s (%d): %s", tier.Label(parsed.Lang), len(ids), strings.Join(ids, ", ")))
	}
	if len(lines) == 0 {
		return c.NoResults(parsed.Lang)
	}
	var header string
	if parsed.Lang == query.LangHebrew {
		header = fmt.Sprintf("נמצאו %d בקשות לפי דחיפות:", len(records))
	} else {
		header = fmt.Sprintf("Found %d requests by urgency:", len(records))
	}
	return header + "\n" + strings.Join(lines, "\n")
}

// NoResults is the localized empty-result notice; an empty result is a
// valid answer, never an error page.
func (c *Composer) NoResults(lang string) string {
	if lang == query.LangHebrew {
		return "לא נמצאו בקשות מתאימות לשאילתה."
	}
	return "No relevant requests were found."
}

// GenerationUnavailable is the localized notice attached to a
// retrieval-only response after a generation failure.
func (c *Composer) GenerationUnavailable(lang string) string {
	if lang == query.LangHebrew {
		return "יצירת תשובה אינה זמינה כרגע; מוצגות תוצאות האחזור בלבד."
	}
	return "Answer generation is unavailable right now; showing retrieval results only."
}

package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date phrasing rules, evaluated in order; at most one fires per query.
var (
	daysBackHeRe = regexp.MustCompile(`([0-9]{1,3})\s*(?:ימים|יום|הימים)\s*(?:אחורה|אחרונים|האחרונים)`)
	daysAgoHeRe  = regexp.MustCompile(`לפני\s+([0-9]{1,3})\s*(?:ימים|יום)`)
	daysBackEnRe = regexp.MustCompile(`(?i)(?:last|past)\s+([0-9]{1,3})\s+days?`)
	daysAgoEnRe  = regexp.MustCompile(`(?i)([0-9]{1,3})\s+days?\s+(?:back|ago)`)
	weekRe       = regexp.MustCompile(`(?i)שבוע (?:אחרון|האחרון|שעבר)|בשבוע האחרון|מהשבוע|השבוע|last week|past week`)
	monthRe      = regexp.MustCompile(`(?i)חודש (?:אחרון|האחרון|שעבר)|בחודש האחרון|מהחודש|החודש|last month|past month`)
	recentRe     = regexp.MustCompile(`(?i)לאחרונה|אחרונות|האחרונות|אחרונים|האחרונים|אחרונה|recently|recent|latest`)

	calendarDateRe = regexp.MustCompile(`[0-9]{4}-[0-9]{2}-[0-9]{2}|[0-9]{1,2}[./][0-9]{1,2}[./][0-9]{2,4}`)
	openStartRe    = regexp.MustCompile(`(?i)(?:עד|לפני|until|before)\s*[-:]?\s*$`)
	openEndRe      = regexp.MustCompile(`(?i)(?:מאז|החל מ|אחרי|מ|since|after|from)\s*[-:]?\s*$`)
)

var calendarLayouts = []string{
	"2/1/2006", "2/1/06", "2.1.2006", "2.1.06", "2006-01-02",
}

// extractDates applies the relative-phrase rules first, then calendar dates.
// Returns nil when no rule fires.
func (p *Parser) extractDates(q string) *DateRange {
	if m := daysBackHeRe.FindStringSubmatch(q); m != nil {
		return p.relativeRange(atoiSafe(m[1]))
	}
	if m := daysAgoHeRe.FindStringSubmatch(q); m != nil {
		return p.relativeRange(atoiSafe(m[1]))
	}
	if m := daysBackEnRe.FindStringSubmatch(q); m != nil {
		return p.relativeRange(atoiSafe(m[1]))
	}
	if m := daysAgoEnRe.FindStringSubmatch(q); m != nil {
		return p.relativeRange(atoiSafe(m[1]))
	}
	if weekRe.MatchString(q) {
		return p.relativeRange(7)
	}
	if monthRe.MatchString(q) {
		return p.relativeRange(30)
	}
	if recentRe.MatchString(q) {
		return p.relativeRange(p.recentDays)
	}
	return p.calendarRange(q)
}

func (p *Parser) relativeRange(days int) *DateRange {
	if days <= 0 {
		days = p.recentDays
	}
	now := p.now()
	return &DateRange{
		Start: dayStart(now.AddDate(0, 0, -days)),
		End:   dayEnd(now),
		Days:  days,
	}
}

// calendarRange handles explicit dates: two dates form a closed range, one
// date preceded by an open-side marker forms a half-open range, one bare date
// covers that single day.
func (p *Parser) calendarRange(q string) *DateRange {
	locs := calendarDateRe.FindAllStringIndex(q, 3)
	if len(locs) == 0 {
		return nil
	}
	first, ok := parseCalendarDate(q[locs[0][0]:locs[0][1]])
	if !ok {
		return nil
	}
	if len(locs) >= 2 {
		second, ok := parseCalendarDate(q[locs[1][0]:locs[1][1]])
		if !ok {
			return &DateRange{Start: dayStart(first), End: dayEnd(first)}
		}
		if second.Before(first) {
			first, second = second, first
		}
		return &DateRange{Start: dayStart(first), End: dayEnd(second)}
	}
	prefix := q[:locs[0][0]]
	if openStartRe.MatchString(prefix) {
		return &DateRange{End: dayEnd(first)}
	}
	if openEndRe.MatchString(prefix) {
		return &DateRange{Start: dayStart(first)}
	}
	return &DateRange{Start: dayStart(first), End: dayEnd(first)}
}

func parseCalendarDate(token string) (time.Time, bool) {
	token = strings.TrimSpace(token)
	for _, layout := range calendarLayouts {
		if t, err := time.ParseInLocation(layout, token, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

func atoiSafe(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

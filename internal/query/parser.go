// Package query turns a free-text Hebrew/English request query into a
// structured intent: entity values, a coarse intent category and a query
// type. Parsing is a pure function of (query, parser params); it never
// performs I/O and never fails: unparseable input degrades to the
// general/find defaults.
package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shaibs/reqsearch/internal/model"
)

const (
	LangHebrew  = "he"
	LangEnglish = "en"
)

type Params struct {
	// DefaultRecentDays is the window used for a bare "recent" qualifier
	// with no explicit number.
	DefaultRecentDays int
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

type Parser struct {
	recentDays int
	now        func() time.Time
}

func NewParser(params Params) *Parser {
	p := &Parser{
		recentDays: params.DefaultRecentDays,
		now:        params.Now,
	}
	if p.recentDays <= 0 {
		p.recentDays = 7
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Parse evaluates the detection steps in fixed precedence order: entity
// type, query type, urgency, dates, then entity values. For similar and
// answer-retrieval queries the result carries only the source request id;
// incidental person/project matches are discarded.
func (p *Parser) Parse(raw string) *Parsed {
	q := strings.TrimSpace(raw)
	out := &Parsed{
		Raw:        raw,
		Lang:       DominantLang(q),
		Intent:     IntentGeneral,
		QueryType:  TypeFind,
		EntityType: EntityRequests,
	}
	if q == "" {
		return out
	}

	if projectFamilyRe.MatchString(q) && !requestFamilyRe.MatchString(q) {
		out.EntityType = EntityProjects
	}

	reqID := extractRequestID(q)
	out.QueryType = detectQueryType(q, reqID != "")
	if out.QueryType == TypeSimilar || out.QueryType == TypeAnswerRetrieval {
		out.Entities.RequestID = reqID
		return out
	}

	urgent := urgencyRe.MatchString(q)
	if urgent {
		out.Entities.Urgent = true
		if out.QueryType == TypeFind {
			out.QueryType = TypeUrgent
		}
	}

	out.Entities.Dates = p.extractDates(q)
	out.Entities.RequestID = reqID
	out.Entities.PersonName = extractByRules(personRules, q)
	out.Entities.ProjectName = extractByRules(projectRules, q)
	out.Entities.TypeID = extractNumericID(typeIDRe, q)
	out.Entities.StatusID = extractNumericID(statusIDRe, q)

	out.Intent = detectIntent(q, out.Entities, urgent)
	out.TargetFields = targetFieldsFor(out.Intent)
	return out
}

// detectQueryType applies the fixed precedence: answer retrieval, then
// similarity, counting, summarization; anything else is a find.
func detectQueryType(q string, hasRequestID bool) QueryType {
	switch {
	case answerWordRe.MatchString(q) && (similarRe.MatchString(q) || hasRequestID):
		return TypeAnswerRetrieval
	case similarRe.MatchString(q):
		return TypeSimilar
	case countRe.MatchString(q):
		return TypeCount
	case summarizeRe.MatchString(q):
		return TypeSummarize
	}
	return TypeFind
}

// detectIntent prefers explicit entity matches over the heuristic person
// fallback. Urgency excludes the fallback so a pure urgency query is not
// misread as a person lookup.
func detectIntent(q string, e Entities, urgent bool) Intent {
	switch {
	case e.PersonName != "":
		return IntentPerson
	case e.ProjectName != "":
		return IntentProject
	case e.TypeID != nil:
		return IntentType
	case e.StatusID != nil:
		return IntentStatus
	}
	if !urgent && contextualWordPresent(q) && len(contentWords(q)) >= 2 {
		return IntentPerson
	}
	return IntentGeneral
}

func targetFieldsFor(intent Intent) []string {
	switch intent {
	case IntentPerson:
		return []string{
			model.FieldUpdatedBy,
			model.FieldCreatedBy,
			model.FieldResponsibleName,
			model.FieldContactName,
		}
	case IntentProject:
		return []string{
			model.FieldProjectName,
			model.FieldProjectDescription,
		}
	}
	return nil
}

func extractRequestID(q string) string {
	m := requestIDRe.FindStringSubmatch(q)
	if m == nil {
		return ""
	}
	return m[1]
}

func extractNumericID(re *regexp.Regexp, q string) *int64 {
	m := re.FindStringSubmatch(q)
	if m == nil {
		return nil
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func extractByRules(rules []*regexp.Regexp, q string) string {
	for _, re := range rules {
		m := re.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		if v := cleanEntityValue(m[1]); v != "" {
			return v
		}
	}
	return ""
}

// cleanEntityValue trims punctuation and cuts the capture at the first
// trigger word, so a trailing "of type 4" style suffix never leaks into a
// name. A capture whose first word is itself a trigger is rejected.
func cleanEntityValue(v string) string {
	v = strings.Trim(v, " \t,.:;!?-")
	if v == "" {
		return ""
	}
	var kept []string
	for _, w := range strings.Fields(v) {
		if _, stop := entityStopWords[strings.ToLower(w)]; stop {
			break
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// DominantLang reports the query's primary script; ties resolve to Hebrew
// since the corpus is Hebrew-first.
func DominantLang(q string) string {
	var heb, lat int
	for _, r := range q {
		switch {
		case unicode.Is(unicode.Hebrew, r):
			heb++
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			lat++
		}
	}
	if heb == 0 && lat > 0 {
		return LangEnglish
	}
	if heb >= lat {
		return LangHebrew
	}
	return LangEnglish
}

func contextualWordPresent(q string) bool {
	return requestFamilyRe.MatchString(q) || contextualPersonRe.MatchString(q)
}

// contentWords returns the query tokens that carry standalone meaning in the
// dominant script: letters only, at least two runes, not a known trigger or
// filler word.
func contentWords(q string) []string {
	lang := DominantLang(q)
	tokens := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	var out []string
	for _, tok := range tokens {
		if len([]rune(tok)) < 2 {
			continue
		}
		if !tokenInScript(tok, lang) {
			continue
		}
		if _, stop := contentStopWords[strings.ToLower(tok)]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func tokenInScript(tok, lang string) bool {
	for _, r := range tok {
		if lang == LangHebrew && !unicode.Is(unicode.Hebrew, r) {
			return false
		}
		if lang == LangEnglish && !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

package query

import "time"

type QueryType string

const (
	TypeFind            QueryType = "find"
	TypeCount           QueryType = "count"
	TypeSummarize       QueryType = "summarize"
	TypeSimilar         QueryType = "similar"
	TypeUrgent          QueryType = "urgent"
	TypeAnswerRetrieval QueryType = "answer_retrieval"
)

type Intent string

const (
	IntentGeneral Intent = "general"
	IntentPerson  Intent = "person"
	IntentProject Intent = "project"
	IntentType    Intent = "type"
	IntentStatus  Intent = "status"
)

type EntityType string

const (
	EntityRequests EntityType = "requests"
	EntityProjects EntityType = "projects"
)

// DateRange is a half-open capable range. A zero Start or End means that side
// is unbounded. Days is set only when the range came from a relative phrase.
type DateRange struct {
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
	Days  int       `json:"days,omitempty"`
}

// Entities is sparse: a zero value means "not constrained", never "empty".
// TypeID and StatusID are pointers so a legitimate id 0 stays representable.
type Entities struct {
	PersonName  string     `json:"person_name,omitempty"`
	ProjectName string     `json:"project_name,omitempty"`
	TypeID      *int64     `json:"type_id,omitempty"`
	StatusID    *int64     `json:"status_id,omitempty"`
	Dates       *DateRange `json:"dates,omitempty"`
	Urgent      bool       `json:"urgent,omitempty"`
	RequestID   string     `json:"request_id,omitempty"`
}

// HasStructured reports whether any entity is expressible as an exact SQL
// predicate.
func (e Entities) HasStructured() bool {
	return e.TypeID != nil || e.StatusID != nil || e.Dates != nil || e.Urgent
}

// TextValues returns the entity values that need fuzzy or semantic matching,
// in a fixed order.
func (e Entities) TextValues() []string {
	var out []string
	if e.PersonName != "" {
		out = append(out, e.PersonName)
	}
	if e.ProjectName != "" {
		out = append(out, e.ProjectName)
	}
	return out
}

func (e Entities) HasText() bool {
	return e.PersonName != "" || e.ProjectName != ""
}

type Parsed struct {
	Raw          string     `json:"raw"`
	Lang         string     `json:"lang"`
	Intent       Intent     `json:"intent"`
	QueryType    QueryType  `json:"query_type"`
	EntityType   EntityType `json:"entity_type"`
	Entities     Entities   `json:"entities"`
	TargetFields []string   `json:"target_fields,omitempty"`
}

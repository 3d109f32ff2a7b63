// Package index builds the embedding chunk set from the request table:
// weighted field combining, markdown flattening, token-bounded splitting
// and the exclusive truncate-then-rewrite regeneration run.
package index

import "github.com/shaibs/reqsearch/internal/model"

// FieldSpec binds one record field to its repetition weight and the label
// written before the value in combined text. Labels are what lexical
// boosting matches against, so the search side reads them from here.
type FieldSpec struct {
	Field  string
	Label  string
	Weight float64
}

// WeightProfile is the static field order and weighting behind every chunk.
// It is fixed per deployment: embeddings computed under different profiles
// are not comparable, so any change requires a full regeneration.
type WeightProfile struct {
	Fields []FieldSpec
	// MaxFieldRunes caps one field's contribution per repetition. A half
	// weight halves this cap instead of repeating.
	MaxFieldRunes int
}

// DefaultProfile weights identity and work-description fields above people
// fields, and keeps raw contact details at half weight so an email address
// or phone number never dominates a record's embedding. Categorical ids and
// dates are excluded; the structured filters own those.
func DefaultProfile() *WeightProfile {
	return &WeightProfile{
		MaxFieldRunes: 2000,
		Fields: []FieldSpec{
			{Field: model.FieldProjectName, Label: "פרויקט", Weight: 3},
			{Field: model.FieldProjectDescription, Label: "תיאור פרויקט", Weight: 2},
			{Field: model.FieldJobDescription, Label: "תיאור עבודה", Weight: 2},
			{Field: model.FieldAreaDescription, Label: "תיאור אזור", Weight: 1},
			{Field: model.FieldRemarks, Label: "הערות", Weight: 1},
			{Field: model.FieldUpdatedBy, Label: "עודכן על ידי", Weight: 1},
			{Field: model.FieldCreatedBy, Label: "נפתח על ידי", Weight: 1},
			{Field: model.FieldResponsibleName, Label: "באחריות", Weight: 1},
			{Field: model.FieldContactName, Label: "איש קשר", Weight: 1},
			{Field: model.FieldContactEmail, Label: "אימייל", Weight: 0.5},
			{Field: model.FieldContactPhone, Label: "טלפון", Weight: 0.5},
		},
	}
}

// Labels returns the field name to label-list mapping the ranker uses for
// adjacency boosting. Excluded and unlabeled fields are absent.
func (p *WeightProfile) Labels() map[string][]string {
	out := make(map[string][]string, len(p.Fields))
	for _, spec := range p.Fields {
		if spec.Weight <= 0 || spec.Label == "" {
			continue
		}
		out[spec.Field] = append(out[spec.Field], spec.Label)
	}
	return out
}

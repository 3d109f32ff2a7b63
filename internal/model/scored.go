package model

// ScoredRequest pairs a materialized request row with the ranking evidence
// that selected it. Similarity and Boost are zero for results produced by a
// pure structured filter, where ordering is recency, not score.
type ScoredRequest struct {
	Request    *Request `json:"request"`
	Similarity float64  `json:"similarity"`
	Boost      float64  `json:"boost"`
}

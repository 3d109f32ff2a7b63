package repo

import (
	"strings"

	"github.com/didi/gendry/builder"
)

// SearchFilter is the exact-predicate side of a parsed query. The same
// filter instance drives both the count query and the result query of one
// ranking pass, which keeps the two sets consistent by construction.
type SearchFilter struct {
	TypeID   *int64
	StatusID *int64
	// CtimeFrom/CtimeTo bound the record creation time, unix seconds,
	// zero = unbounded.
	CtimeFrom int64
	CtimeTo   int64
	// DueBefore selects records whose status date falls in (0, DueBefore].
	DueBefore int64
	// ContainsAll: chunk content must contain each value,
	// case-insensitive. Applies to chunk queries only.
	ContainsAll []string
	// OrContains admits a chunk containing this value even when it falls
	// below the similarity floor, so a literal mention always matches.
	// Applies to chunk queries only.
	OrContains string
	// ExcludeID drops one request id. Applies to chunk queries only.
	ExcludeID string
}

func (f *SearchFilter) IsZero() bool {
	if f == nil {
		return true
	}
	return f.TypeID == nil && f.StatusID == nil && f.CtimeFrom == 0 &&
		f.CtimeTo == 0 && f.DueBefore == 0 && len(f.ContainsAll) == 0 &&
		f.OrContains == "" && f.ExcludeID == ""
}

// requestWhere renders the structured predicates as a gendry where map over
// the requests table.
func (f *SearchFilter) requestWhere() map[string]interface{} {
	where := map[string]interface{}{}
	if f == nil {
		return where
	}
	if f.TypeID != nil {
		where["type_id"] = *f.TypeID
	}
	if f.StatusID != nil {
		where["status_id"] = *f.StatusID
	}
	if f.CtimeFrom > 0 {
		where["ctime >="] = f.CtimeFrom
	}
	if f.CtimeTo > 0 {
		where["ctime <="] = f.CtimeTo
	}
	if f.DueBefore > 0 {
		where["_custom_due"] = builder.Custom("(status_date > 0 AND status_date <= ?)", f.DueBefore)
	}
	return where
}

// chunkConds renders the predicates for the chunk similarity query, where
// requests is joined under alias r and request_chunks under alias c.
// Placeholders are ?; the caller rebinds for postgres.
func (f *SearchFilter) chunkConds() (conds []string, args []interface{}) {
	if f == nil {
		return nil, nil
	}
	if f.TypeID != nil {
		conds = append(conds, "r.type_id = ?")
		args = append(args, *f.TypeID)
	}
	if f.StatusID != nil {
		conds = append(conds, "r.status_id = ?")
		args = append(args, *f.StatusID)
	}
	if f.CtimeFrom > 0 {
		conds = append(conds, "r.ctime >= ?")
		args = append(args, f.CtimeFrom)
	}
	if f.CtimeTo > 0 {
		conds = append(conds, "r.ctime <= ?")
		args = append(args, f.CtimeTo)
	}
	if f.DueBefore > 0 {
		conds = append(conds, "(r.status_date > 0 AND r.status_date <= ?)")
		args = append(args, f.DueBefore)
	}
	for _, v := range f.ContainsAll {
		conds = append(conds, `c.content ILIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(v)+"%")
	}
	if f.ExcludeID != "" {
		conds = append(conds, "c.request_id <> ?")
		args = append(args, f.ExcludeID)
	}
	return conds, args
}

// escapeLike neutralizes pattern metacharacters in a user-influenced value
// so it matches literally inside ILIKE.
func escapeLike(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(v)
}

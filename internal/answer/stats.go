package answer

import (
	"sort"
	"strconv"

	"github.com/shaibs/reqsearch/internal/model"
)

const topListSize = 5

// KV is one aggregate bucket.
type KV struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Stats are deterministic aggregates over a result sample. They are
// injected into summarize prompts so the generator describes numbers it was
// given instead of inferring them from a listing.
type Stats struct {
	Total       int  `json:"total"`
	ByStatus    []KV `json:"by_status"`
	TopProjects []KV `json:"top_projects"`
	TopPeople   []KV `json:"top_people"`
}

// Collect aggregates status distribution, top projects and top involved
// people. A person counts once per record even when named in several
// fields.
func Collect(records []*model.ScoredRequest) *Stats {
	status := map[string]int{}
	projects := map[string]int{}
	people := map[string]int{}
	for _, item := range records {
		req := item.Request
		if req == nil {
			continue
		}
		status[strconv.FormatInt(req.StatusID, 10)]++
		if req.ProjectName != "" {
			projects[req.ProjectName]++
		}
		seen := map[string]bool{}
		for _, name := range []string{req.ResponsibleName, req.UpdatedBy, req.CreatedBy} {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			people[name]++
		}
	}
	return &Stats{
		Total:       len(records),
		ByStatus:    topOf(status, 0),
		TopProjects: topOf(projects, topListSize),
		TopPeople:   topOf(people, topListSize),
	}
}

// topOf orders buckets by count desc then key asc, so equal inputs always
// produce identical output. limit 0 keeps everything.
func topOf(counts map[string]int, limit int) []KV {
	out := make([]KV, 0, len(counts))
	for key, count := range counts {
		out = append(out, KV{Key: key, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

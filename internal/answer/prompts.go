package answer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shaibs/reqsearch/internal/model"
	"github.com/shaibs/reqsearch/internal/query"
)

// PromptInput carries everything prompt construction may need. Source is
// set only for similar and answer-retrieval queries.
type PromptInput struct {
	Parsed  *query.Parsed
	Records []*model.ScoredRequest
	Source  *model.Request
	Count   int64
	Stats   *Stats
}

// Prompt renders the generation prompt for the query type. Every number the
// generator may cite is computed beforehand and written into the prompt;
// the instructions forbid inventing new ones.
func (c *Composer) Prompt(in PromptInput) string {
	var sb strings.Builder
	sb.WriteString("You are an assistant answering questions about business service requests.\n")
	sb.WriteString(languageInstruction(in.Parsed.Lang))
	sb.WriteString("\n")

	switch in.Parsed.QueryType {
	case query.TypeSummarize:
		sb.WriteString("Summarize the matching requests using ONLY the precomputed statistics and the sample below. ")
		sb.WriteString("Do not count records yourself; cite the given numbers.\n\n")
		if in.Stats != nil {
			sb.WriteString(statsContext(in.Stats))
			sb.WriteString("\n")
		}
	case query.TypeSimilar, query.TypeAnswerRetrieval:
		sb.WriteString("Explain why the candidate requests are similar to the source request. ")
		sb.WriteString("Point at the shared fields listed for each candidate; do not invent other connections.\n\n")
		if in.Source != nil {
			sb.WriteString("Source request:\n")
			sb.WriteString(recordFields(in.Source))
			sb.WriteString("\n\n")
		}
	case query.TypeCount:
		fmt.Fprintf(&sb, "The verified exact count of matching requests is %d. ", in.Count)
		sb.WriteString("State this exact number; never a different one.\n\n")
	default:
		fmt.Fprintf(&sb, "There are %d matching requests in total; the list below is the top sample. ", in.Count)
		sb.WriteString("Write a short synthesized answer referencing the count and the salient facts. ")
		sb.WriteString("Do NOT re-list every record.\n\n")
	}

	sb.WriteString(fmt.Sprintf("User question: %s\n\n", in.Parsed.Raw))
	sb.WriteString("Matching requests:\n")
	sb.WriteString(c.recordContext(in))
	return sb.String()
}

func languageInstruction(lang string) string {
	if lang == query.LangHebrew {
		return "Answer in Hebrew."
	}
	return "Answer in English."
}

func (c *Composer) recordContext(in PromptInput) string {
	var sb strings.Builder
	for i, item := range in.Records {
		if item.Request == nil {
			continue
		}
		sb.WriteString(recordLine(i+1, item.Request))
		if in.Source != nil {
			if shared := sharedFields(in.Source, item.Request); len(shared) > 0 {
				fmt.Fprintf(&sb, "   shared with source: %s\n", strings.Join(shared, ", "))
			}
		}
	}
	if sb.Len() == 0 {
		return "(none)\n"
	}
	return sb.String()
}

func recordLine(ord int, req *model.Request) string {
	return fmt.Sprintf("%d. %s\n", ord, recordFields(req))
}

// recordFields is one compact context row. Long free text is clipped so a
// single verbose record cannot crowd out the rest of the prompt.
func recordFields(req *model.Request) string {
	parts := []string{fmt.Sprintf("request %s", req.ID)}
	if req.ProjectName != "" {
		parts = append(parts, "project: "+req.ProjectName)
	}
	parts = append(parts,
		fmt.Sprintf("type: %d", req.TypeID),
		fmt.Sprintf("status: %d", req.StatusID),
	)
	if req.StatusDate > 0 {
		parts = append(parts, "due: "+time.Unix(req.StatusDate, 0).Format("2006-01-02"))
	}
	if req.ResponsibleName != "" {
		parts = append(parts, "responsible: "+req.ResponsibleName)
	}
	if desc := clip(req.JobDescription, 160); desc != "" {
		parts = append(parts, "work: "+desc)
	}
	return strings.Join(parts, " | ")
}

func statsContext(stats *Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Statistics over a sample of %d requests:\n", stats.Total)
	sb.WriteString("- status distribution: " + kvList(stats.ByStatus) + "\n")
	if len(stats.TopProjects) > 0 {
		sb.WriteString("- top projects: " + kvList(stats.TopProjects) + "\n")
	}
	if len(stats.TopPeople) > 0 {
		sb.WriteString("- top people: " + kvList(stats.TopPeople) + "\n")
	}
	return sb.String()
}

func kvList(items []KV) string {
	if len(items) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s (%d)", item.Key, item.Count))
	}
	return strings.Join(parts, ", ")
}

// sharedFields lists which identifying fields a candidate has in common
// with the source record.
func sharedFields(source, candidate *model.Request) []string {
	var shared []string
	if source.ProjectName != "" && source.ProjectName == candidate.ProjectName {
		shared = append(shared, "project")
	}
	if source.TypeID == candidate.TypeID {
		shared = append(shared, "type")
	}
	if source.StatusID == candidate.StatusID {
		shared = append(shared, "status")
	}
	if source.ResponsibleName != "" && source.ResponsibleName == candidate.ResponsibleName {
		shared = append(shared, "responsible")
	}
	return shared
}

func clip(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + "..."
		}
		n++
	}
	return s
}

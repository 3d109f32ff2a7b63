package index

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/shaibs/reqsearch/internal/model"
)

// Combine renders a request as weighted "label: value" lines in profile
// order. Integer weights repeat the line so the field pulls the embedding
// proportionally harder; a half weight includes the line once with half the
// field budget. Rich-text remarks are flattened to plain text first so
// markup never reaches the embedding model. Returns "" when every weighted
// field is empty.
func Combine(req *model.Request, profile *WeightProfile) string {
	var sb strings.Builder
	for _, spec := range profile.Fields {
		if spec.Weight <= 0 {
			continue
		}
		value := strings.TrimSpace(fieldValue(req, spec.Field))
		if value == "" {
			continue
		}
		if spec.Field == model.FieldRemarks {
			value = flattenMarkdown(value)
			if value == "" {
				continue
			}
		}
		budget := profile.MaxFieldRunes
		repeat := int(spec.Weight)
		if repeat < 1 {
			repeat = 1
			budget /= 2
		}
		line := spec.Label + ": " + truncateRunes(value, budget)
		for i := 0; i < repeat; i++ {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(line)
		}
	}
	return sb.String()
}

func fieldValue(req *model.Request, field string) string {
	switch field {
	case model.FieldProjectName:
		return req.ProjectName
	case model.FieldProjectDescription:
		return req.ProjectDescription
	case model.FieldAreaDescription:
		return req.AreaDescription
	case model.FieldJobDescription:
		return req.JobDescription
	case model.FieldRemarks:
		return req.Remarks
	case model.FieldUpdatedBy:
		return req.UpdatedBy
	case model.FieldCreatedBy:
		return req.CreatedBy
	case model.FieldResponsibleName:
		return req.ResponsibleName
	case model.FieldContactName:
		return req.ContactName
	case model.FieldContactEmail:
		return req.ContactEmail
	case model.FieldContactPhone:
		return req.ContactPhone
	}
	return ""
}

// flattenMarkdown reduces a markdown document to its text content, block
// texts separated by newlines.
func flattenMarkdown(md string) string {
	reader := text.NewReader([]byte(md))
	doc := goldmark.New().Parser().Parse(reader)
	var parts []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if txt := extractText(node, reader.Source()); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, "\n")
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			// separate sibling blocks (list items, nested paragraphs) so
			// their words do not run together
			if node.Type() == ast.TypeBlock {
				if l := sb.Len(); l > 0 && sb.String()[l-1] != '\n' {
					sb.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		}
		if t, ok := node.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// truncateRunes cuts s to at most max runes without splitting a UTF-8
// sequence.
func truncateRunes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

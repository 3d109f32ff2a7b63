package index

import "strings"

// SplitChunks cuts combined text into pieces of roughly maxTokens tokens.
// Splitting prefers line boundaries so a label stays with its value; a
// single line over the budget is split on word boundaries instead, since
// embedding models enforce hard input limits. Non-empty input always
// yields at least one chunk.
func SplitChunks(combined string, maxTokens int) []string {
	combined = strings.TrimSpace(combined)
	if combined == "" {
		return nil
	}
	if maxTokens <= 0 {
		maxTokens = 400
	}
	var chunks []string
	var cur []string
	curTokens := 0
	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(cur, "\n"))
		cur = nil
		curTokens = 0
	}
	for _, line := range strings.Split(combined, "\n") {
		tokens := estimateTokens(line)
		if tokens > maxTokens {
			flush()
			chunks = append(chunks, splitLine(line, maxTokens)...)
			continue
		}
		if curTokens > 0 && curTokens+tokens > maxTokens {
			flush()
		}
		cur = append(cur, line)
		curTokens += tokens
	}
	flush()
	return chunks
}

// splitLine breaks one oversized line into word groups inside the budget.
// A single word larger than the budget stays whole.
func splitLine(line string, maxTokens int) []string {
	var out []string
	var cur []string
	curTokens := 0
	for _, word := range strings.Fields(line) {
		tokens := estimateTokens(word)
		if curTokens > 0 && curTokens+tokens > maxTokens {
			out = append(out, strings.Join(cur, " "))
			cur = nil
			curTokens = 0
		}
		cur = append(cur, word)
		curTokens += tokens
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, " "))
	}
	return out
}

// estimateTokens approximates the embedding tokenizer: one token per
// whitespace word plus one per non-ASCII rune. Hebrew overcounts a little,
// which only makes chunks smaller than the budget.
func estimateTokens(text string) int {
	count := 0
	for _, r := range text {
		if r > 127 {
			count++
		}
	}
	count += len(strings.Fields(text))
	if count == 0 && len(text) > 0 {
		return 1
	}
	return count
}

package parser

import "strings"

// Questionnaire exports carry a repeated template header and footer on
// every page, plus a stray " SUMMARY" artifact from the EMR layout.
// CleanDocumentText removes both and joins the pages into one text blob.
//
// Header/footer detection is frequency-based: a non-empty line sitting at
// a page edge on more than half the pages is template furniture, not
// patient narrative.
func CleanDocumentText(text string) string {
	text = strings.ReplaceAll(text, " SUMMARY", "")

	pages := strings.Split(text, "\f")
	if len(pages) < 2 {
		return strings.TrimSpace(text)
	}

	const edgeDepth = 2
	counts := make(map[string]int)
	for _, page := range pages {
		for _, line := range edgeLines(page, edgeDepth) {
			counts[line]++
		}
	}

	threshold := len(pages)/2 + 1
	repeated := make(map[string]bool)
	for line, n := range counts {
		if n >= threshold {
			repeated[line] = true
		}
	}

	var out []string
	for _, page := range pages {
		lines := strings.Split(page, "\n")

		// Trim repeated lines from the top edge.
		start := 0
		for depth := 0; start < len(lines) && depth < edgeDepth; start++ {
			t := strings.TrimSpace(lines[start])
			if t == "" {
				continue
			}
			if !repeated[t] {
				break
			}
			depth++
		}

		// And from the bottom edge.
		end := len(lines)
		for depth := 0; end > start && depth < edgeDepth; end-- {
			t := strings.TrimSpace(lines[end-1])
			if t == "" {
				continue
			}
			if !repeated[t] {
				break
			}
			depth++
		}

		page = strings.TrimSpace(strings.Join(lines[start:end], "\n"))
		if page != "" {
			out = append(out, page)
		}
	}

	return strings.Join(out, "\n")
}

// edgeLines returns up to depth non-empty lines from each end of a page.
func edgeLines(page string, depth int) []string {
	lines := strings.Split(page, "\n")
	var edges []string

	n := 0
	for i := 0; i < len(lines) && n < depth; i++ {
		if t := strings.TrimSpace(lines[i]); t != "" {
			edges = append(edges, t)
			n++
		}
	}
	n = 0
	for i := len(lines) - 1; i >= 0 && n < depth; i-- {
		if t := strings.TrimSpace(lines[i]); t != "" {
			edges = append(edges, t)
			n++
		}
	}
	return edges
}

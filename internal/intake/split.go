package intake

import "strings"

// Section is one named subdivision of the region of interest.
type Section struct {
	Key     SectionKey
	Header  string // display label
	RawText string
	Absent  bool
}

// Split is the ordered result of sectioning a region. HeadersFound counts
// how many of the seven canonical headers actually occurred; callers use
// it to flag low-confidence extractions.
type Split struct {
	Sections         []Section
	HeadersFound     int
	PastMedicalFound bool
}

// minHeadersReliable is the threshold below which an extraction is
// reported as unreliable.
const minHeadersReliable = 5

// Unreliable reports whether the region should be treated as a
// low-confidence extraction: the leading header is missing entirely, or
// fewer than five of the seven canonical headers were detected.
func (s Split) Unreliable() bool {
	return !s.PastMedicalFound || s.HeadersFound < minHeadersReliable
}

// Section returns the entry for key, or a zero Section with Absent set.
func (s Split) Section(key SectionKey) Section {
	for _, sec := range s.Sections {
		if sec.Key == key {
			return sec
		}
	}
	return Section{Key: key, Header: DisplayName(key), Absent: true}
}

// SplitSections divides region text into the canonical sections. Summary is
// everything before the first occurrence of the "Past medical" header; each
// named section runs from the end of its header to the first occurrence of
// any header later in canonical order. Matching is case-insensitive
// substring search. The split is a pure function of its input.
//
// If the "Past medical" header never occurs the document cannot be
// sectioned: the whole region becomes Summary, every named section is
// absent, and PastMedicalFound is false so the caller can surface the
// condition instead of shipping a silently empty note.
func SplitSections(region string) Split {
	lower := lowerASCII(region)

	found := make([]int, len(canonicalHeaders))
	headersFound := 0
	for i, h := range canonicalHeaders {
		found[i] = strings.Index(lower, lowerASCII(h))
		if found[i] >= 0 {
			headersFound++
		}
	}

	split := Split{
		HeadersFound:     headersFound,
		PastMedicalFound: found[0] >= 0,
	}

	if !split.PastMedicalFound {
		split.Sections = append(split.Sections, makeSection(KeySummary, region))
		for _, key := range headerKeys {
			split.Sections = append(split.Sections, Section{
				Key:    key,
				Header: DisplayName(key),
				Absent: true,
			})
		}
		return split
	}

	split.Sections = append(split.Sections, makeSection(KeySummary, region[:found[0]]))

	for i, h := range canonicalHeaders {
		key := headerKeys[i]
		if found[i] < 0 {
			split.Sections = append(split.Sections, Section{
				Key:    key,
				Header: DisplayName(key),
				Absent: true,
			})
			continue
		}

		// Body runs to the nearest later canonical header that occurs
		// after this one. Earlier headers never bound a section, so a
		// header word re-mentioned in prose further on cannot cut an
		// earlier section short.
		bodyStart := found[i] + len(h)
		bodyEnd := len(region)
		for j := i + 1; j < len(canonicalHeaders); j++ {
			idx := strings.Index(lower[bodyStart:], lowerASCII(canonicalHeaders[j]))
			if idx >= 0 && bodyStart+idx < bodyEnd {
				bodyEnd = bodyStart + idx
			}
		}
		split.Sections = append(split.Sections, makeSection(key, region[bodyStart:bodyEnd]))
	}

	return split
}

// lowerASCII folds only 'A'-'Z', byte for byte. strings.ToLower can grow
// multi-byte runes, which would shift the header offsets out of alignment
// with the original region; the canonical headers are pure ASCII, so ASCII
// folding is all the matching needs.
func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func makeSection(key SectionKey, raw string) Section {
	// Headers in the dump are followed by a colon or a newline; neither
	// belongs to the body.
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, ":"))
	return Section{
		Key:     key,
		Header:  DisplayName(key),
		RawText: raw,
		Absent:  IsNAString(raw),
	}
}

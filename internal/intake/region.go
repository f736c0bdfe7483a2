package intake

import "strings"

// Default marker strings used by the questionnaire template.
const (
	DefaultStartMarker = "[-enable start-]"
	DefaultEndMarker   = "[-enable end-]"
	DefaultIgnoreStart = "[-icbc start-]"
	DefaultIgnoreEnd   = "[-icbc end-]"

	pronounsTag  = "[-pronouns-]"
	altEndMarker = "1.\nName"
)

// FallbackMode controls what happens when a region marker is missing.
type FallbackMode int

const (
	// FallbackLenient substitutes the documented anchor strings for a
	// missing marker: the line after the pronouns tag for the start, the
	// numbered Name label for the end.
	FallbackLenient FallbackMode = iota
	// FallbackStrict treats a missing marker as unresolvable.
	FallbackStrict
)

// RegionOptions configures LocateRegion. Empty start/end markers use the
// questionnaire defaults; empty ignore markers disable excision.
type RegionOptions struct {
	StartMarker string
	EndMarker   string
	IgnoreStart string
	IgnoreEnd   string
	Fallback    FallbackMode
}

func (o RegionOptions) withDefaults() RegionOptions {
	if o.StartMarker == "" {
		o.StartMarker = DefaultStartMarker
	}
	if o.EndMarker == "" {
		o.EndMarker = DefaultEndMarker
	}
	return o
}

// LocateRegion returns the clinically relevant free-text region of a
// document: the substring strictly between the start and end markers,
// trimmed. A missing marker falls back per o.Fallback; if either boundary
// still cannot be resolved the result is "". It never fails.
//
// When both ignore markers occur inside the region, that span (markers
// inclusive) is excised and the surrounding halves rejoined.
func LocateRegion(doc string, o RegionOptions) string {
	o = o.withDefaults()

	start := -1
	if i := strings.Index(doc, o.StartMarker); i >= 0 {
		start = i + len(o.StartMarker)
	} else if o.Fallback == FallbackLenient {
		if j := strings.Index(doc, pronounsTag); j >= 0 {
			if nl := strings.IndexByte(doc[j:], '\n'); nl >= 0 {
				start = j + nl + 1
			}
		}
	}
	if start < 0 {
		return ""
	}

	endMarker := o.EndMarker
	end := strings.Index(doc[start:], endMarker)
	if end < 0 && o.Fallback == FallbackLenient {
		endMarker = altEndMarker
		end = strings.Index(doc[start:], endMarker)
	}
	if end < 0 {
		return ""
	}

	region := doc[start : start+end]

	if o.IgnoreStart != "" && o.IgnoreEnd != "" {
		is := strings.Index(region, o.IgnoreStart)
		ie := strings.Index(region, o.IgnoreEnd)
		if is >= 0 && ie >= 0 && ie > is {
			before := strings.TrimSpace(region[:is])
			after := strings.TrimSpace(region[ie+len(o.IgnoreEnd):])
			region = before + "\n" + after
		}
	}

	return strings.TrimSpace(region)
}

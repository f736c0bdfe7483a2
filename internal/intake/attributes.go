package intake

import (
	"regexp"
	"strings"
)

// Attributes are the patient fields pulled from the raw document text.
// Every field is independently optional; a missing tag or lead-in leaves
// the field "". Only the PII guard consumes these.
type Attributes struct {
	Name        string
	Age         string
	Gender      string
	Pronouns    string
	Occupation  string
	Employer    string
	Cohabitants string
}

var (
	nameTagRe     = regexp.MustCompile(`\[-name-\]\s*(.*)`)
	ageTagRe      = regexp.MustCompile(`\[-age-\]\s*(.*)`)
	genderTagRe   = regexp.MustCompile(`\[-gender-\]\s*(.*)`)
	pronounsTagRe = regexp.MustCompile(`\[-pronouns-\]\s*(.*)`)

	tagValueJunk = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
)

// Free-text answers sit between a fixed lead-in phrase and the next
// numbered item label on the questionnaire.
const (
	occupationLeadIn  = "My occupation is"
	occupationEndItem = "35.2"

	employerLeadIn  = "I work at an organization called"
	employerEndItem = "35.3"

	cohabitantsLeadIn  = "I live with the following people"
	cohabitantsEndItem = "32"
)

// ExtractAttributes scans the raw document text for the tagged patient
// fields and the three free-text answers. Absence is always an empty
// string, never an error.
func ExtractAttributes(doc string) Attributes {
	return Attributes{
		Name:        taggedField(nameTagRe, doc),
		Age:         taggedField(ageTagRe, doc),
		Gender:      taggedField(genderTagRe, doc),
		Pronouns:    taggedField(pronounsTagRe, doc),
		Occupation:  leadInField(doc, occupationLeadIn, occupationEndItem),
		Employer:    leadInField(doc, employerLeadIn, employerEndItem),
		Cohabitants: leadInField(doc, cohabitantsLeadIn, cohabitantsEndItem),
	}
}

// taggedField captures the rest of the line after a tag literal and strips
// everything outside [A-Za-z0-9 and whitespace], matching how the
// questionnaire terminates tag lines with punctuation.
func taggedField(re *regexp.Regexp, doc string) string {
	m := re.FindStringSubmatch(doc)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(tagValueJunk.ReplaceAllString(strings.TrimSpace(m[1]), ""))
}

// leadInField captures text between a lead-in phrase and the next numeric
// item label; with no end label in sight it runs to the end of the text.
func leadInField(doc, leadIn, endItem string) string {
	start := strings.Index(doc, leadIn)
	if start < 0 {
		return ""
	}
	start += len(leadIn)
	end := strings.Index(doc[start:], endItem)
	if end < 0 {
		end = len(doc) - start
	}
	return strings.TrimSpace(doc[start : start+end])
}

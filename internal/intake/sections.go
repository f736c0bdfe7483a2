package intake

import (
	"regexp"
	"strings"
)

// SectionKey identifies one of the note sections.
type SectionKey string

const (
	KeyQuestionnaire      SectionKey = "questionaire"
	KeyICBC               SectionKey = "icbc"
	KeySummary            SectionKey = "summary"
	KeyPastMedical        SectionKey = "past_medical"
	KeySurgicalHistory    SectionKey = "surgical_history"
	KeyCurrentMedications SectionKey = "current_medication"
	KeyAllergies          SectionKey = "allergies"
	KeyFamilyHistory      SectionKey = "family_history"
	KeySocialHistory      SectionKey = "social_history"
	KeyFunctionalHistory  SectionKey = "functional_history"
)

// DocumentKeys are the sections parsed out of the document region, in
// canonical order. Summary is implicit: it has no header of its own and
// covers everything before the first one.
var DocumentKeys = []SectionKey{
	KeySummary,
	KeyPastMedical,
	KeySurgicalHistory,
	KeyCurrentMedications,
	KeyAllergies,
	KeyFamilyHistory,
	KeySocialHistory,
	KeyFunctionalHistory,
}

// AllKeys is the full canonical assembly order, including the raw-text
// sections that are supplied directly rather than parsed.
var AllKeys = []SectionKey{
	KeyQuestionnaire,
	KeyICBC,
	KeySummary,
	KeyPastMedical,
	KeySurgicalHistory,
	KeyCurrentMedications,
	KeyAllergies,
	KeyFamilyHistory,
	KeySocialHistory,
	KeyFunctionalHistory,
}

// canonicalHeaders are the header strings as they appear in the
// questionnaire dump, in document order. Matching is case-insensitive
// substring search; a header word inside prose is an accepted false
// positive.
var canonicalHeaders = []string{
	"Past medical",
	"Surgical history",
	"Current medications",
	"Allergies",
	"Family History",
	"Social History",
	"Functional History",
}

// headerKeys maps canonicalHeaders positions to section keys.
var headerKeys = []SectionKey{
	KeyPastMedical,
	KeySurgicalHistory,
	KeyCurrentMedications,
	KeyAllergies,
	KeyFamilyHistory,
	KeySocialHistory,
	KeyFunctionalHistory,
}

// displayNames are the labels used in the assembled note.
var displayNames = map[SectionKey]string{
	KeyQuestionnaire:      "Questionaire Summary",
	KeyICBC:               "ICBC/WBC",
	KeySummary:            "Summary",
	KeyPastMedical:        "Past Medical",
	KeySurgicalHistory:    "Surgical History",
	KeyCurrentMedications: "Current Medication",
	KeyAllergies:          "Allergies",
	KeyFamilyHistory:      "Family History",
	KeySocialHistory:      "Social History",
	KeyFunctionalHistory:  "Functional History",
}

// DisplayName returns the note label for a section key.
func DisplayName(key SectionKey) string {
	return displayNames[key]
}

var nonAlpha = regexp.MustCompile(`[^a-zA-Z]`)

// naTokens are the ways a questionnaire answer says "nothing here" once
// non-alphabetic characters are stripped.
var naTokens = map[string]bool{
	"":     true,
	"n":    true,
	"na":   true,
	"no":   true,
	"none": true,
}

// IsNAString reports whether text reduces to an absence marker ("N/A",
// "no", "none", an empty answer) after removing every non-alphabetic
// character and lowercasing. "Nabumetone" stays a medication.
func IsNAString(text string) bool {
	return naTokens[strings.ToLower(nonAlpha.ReplaceAllString(text, ""))]
}

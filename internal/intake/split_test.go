package intake

import (
	"reflect"
	"strings"
	"testing"
)

const sampleRegion = `Patient reports intermittent headaches for six months.
Past medical
Hypertension, well controlled.
Surgical history
Appendectomy 2010.
Current medications
Ramipril 5mg daily.
Allergies
N/A
Family History
Father with stroke at 60.
Social History
Lives with partner, works as a nurse.
Functional History
Independent with all activities.`

func TestSplitSectionsCanonicalRegion(t *testing.T) {
	split := SplitSections(sampleRegion)

	if split.HeadersFound != 7 {
		t.Fatalf("expected 7 headers found, got %d", split.HeadersFound)
	}
	if !split.PastMedicalFound {
		t.Fatal("expected PastMedicalFound")
	}
	if split.Unreliable() {
		t.Fatal("expected reliable extraction")
	}

	tests := []struct {
		key    SectionKey
		want   string
		absent bool
	}{
		{KeySummary, "Patient reports intermittent headaches for six months.", false},
		{KeyPastMedical, "Hypertension, well controlled.", false},
		{KeySurgicalHistory, "Appendectomy 2010.", false},
		{KeyCurrentMedications, "Ramipril 5mg daily.", false},
		{KeyAllergies, "N/A", true},
		{KeyFamilyHistory, "Father with stroke at 60.", false},
		{KeySocialHistory, "Lives with partner, works as a nurse.", false},
		{KeyFunctionalHistory, "Independent with all activities.", false},
	}
	for _, tc := range tests {
		t.Run(string(tc.key), func(t *testing.T) {
			sec := split.Section(tc.key)
			if sec.RawText != tc.want {
				t.Errorf("expected raw text %q, got %q", tc.want, sec.RawText)
			}
			if sec.Absent != tc.absent {
				t.Errorf("expected absent=%v, got %v", tc.absent, sec.Absent)
			}
		})
	}
}

func TestSplitSectionsTieBreakIgnoresLaterReMention(t *testing.T) {
	region := "prose\nPast medical\nx\nAllergies: peanuts Family History: none Social History: Family History re-mentioned"
	split := SplitSections(region)

	if got := split.Section(KeyFamilyHistory).RawText; got != "none" {
		t.Errorf("expected Family History body %q, got %q", "none", got)
	}
	if got := split.Section(KeyAllergies).RawText; got != "peanuts" {
		t.Errorf("expected Allergies body %q, got %q", "peanuts", got)
	}
	if got := split.Section(KeySocialHistory).RawText; got != "Family History re-mentioned" {
		t.Errorf("expected Social History to keep the re-mention, got %q", got)
	}
}

func TestSplitSectionsCaseInsensitiveHeaders(t *testing.T) {
	region := "summary text\nPAST MEDICAL\nhtn\nsocial history\nlives alone"
	split := SplitSections(region)

	if !split.PastMedicalFound {
		t.Fatal("expected upper-case header to match")
	}
	if got := split.Section(KeyPastMedical).RawText; got != "htn" {
		t.Errorf("expected past medical body %q, got %q", "htn", got)
	}
	if got := split.Section(KeySocialHistory).RawText; got != "lives alone" {
		t.Errorf("expected social history body %q, got %q", "lives alone", got)
	}
}

func TestSplitSectionsMissingPastMedicalIsUnreliable(t *testing.T) {
	region := "free text with no recognizable section structure at all"
	split := SplitSections(region)

	if split.PastMedicalFound {
		t.Fatal("expected PastMedicalFound=false")
	}
	if !split.Unreliable() {
		t.Fatal("expected unreliable extraction")
	}
	if got := split.Section(KeySummary).RawText; got != region {
		t.Errorf("expected entire region as summary, got %q", got)
	}
	for _, key := range DocumentKeys[1:] {
		if sec := split.Section(key); !sec.Absent || sec.RawText != "" {
			t.Errorf("expected %s absent and empty, got %+v", key, sec)
		}
	}
}

func TestSplitSectionsFewHeadersIsUnreliable(t *testing.T) {
	region := "summary\nPast medical\nhtn\nAllergies\nnkda"
	split := SplitSections(region)

	if split.HeadersFound != 2 {
		t.Fatalf("expected 2 headers found, got %d", split.HeadersFound)
	}
	if !split.Unreliable() {
		t.Fatal("expected unreliable extraction with 2 of 7 headers")
	}
	// Sectioning still proceeds for the headers that are present.
	if got := split.Section(KeyPastMedical).RawText; got != "htn" {
		t.Errorf("expected past medical body %q, got %q", "htn", got)
	}
}

func TestSplitSectionsIsIdempotent(t *testing.T) {
	a := SplitSections(sampleRegion)
	b := SplitSections(sampleRegion)
	if !reflect.DeepEqual(a, b) {
		t.Error("expected identical splits for identical input")
	}
}

func TestSplitSectionsMissingMiddleHeader(t *testing.T) {
	region := "summary\nPast medical\nhtn\nSurgical history\nnone\nFamily History\nclear\nSocial History\nlives alone\nFunctional History\nindependent"
	split := SplitSections(region)

	if sec := split.Section(KeyCurrentMedications); !sec.Absent || sec.RawText != "" {
		t.Errorf("expected missing header section absent, got %+v", sec)
	}
	// Surgical history is bounded by the next header that actually occurs.
	if got := split.Section(KeySurgicalHistory).RawText; got != "none" {
		t.Errorf("expected surgical history body %q, got %q", "none", got)
	}
	if got := split.Section(KeySurgicalHistory).Absent; !got {
		t.Error("expected surgical history 'none' flagged absent by N/A detection")
	}
}

// Every byte of the region must land in exactly one span: rejoining the
// summary, the header labels and the section bodies reproduces the input,
// modulo the whitespace trimmed at span edges. sampleRegion uses single
// newline separators and canonical header casing, so the round trip is
// exact.
func TestSplitSectionsSpansAreLossless(t *testing.T) {
	split := SplitSections(sampleRegion)

	parts := []string{split.Section(KeySummary).RawText}
	for i, h := range canonicalHeaders {
		parts = append(parts, h, split.Section(headerKeys[i]).RawText)
	}
	if got := strings.Join(parts, "\n"); got != sampleRegion {
		t.Errorf("rejoined spans do not reproduce the region:\n got %q\nwant %q", got, sampleRegion)
	}
}

// Case folding must not change byte offsets. "Ⱥ" grows from two bytes to
// three under Unicode lowercasing, so a summary full of them used to shift
// every header boundary and could slice past the end of the region.
func TestSplitSectionsNonASCIISummaryKeepsBoundaries(t *testing.T) {
	prefix := strings.Repeat("Ⱥ", 40)
	region := prefix + "\nPast medical\nHypertension\nSurgical history\nAppendectomy\nCurrent medications\nRamipril\nAllergies\nPenicillin\nFamily History\nClear\nSocial History\nLives alone\nFunctional History\nIndependent"

	split := SplitSections(region)

	if split.HeadersFound != 7 {
		t.Fatalf("expected 7 headers found, got %d", split.HeadersFound)
	}
	if got := split.Section(KeySummary).RawText; got != prefix {
		t.Errorf("expected summary %q, got %q", prefix, got)
	}
	if got := split.Section(KeyPastMedical).RawText; got != "Hypertension" {
		t.Errorf("expected past medical body %q, got %q", "Hypertension", got)
	}
	if got := split.Section(KeyFunctionalHistory).RawText; got != "Independent" {
		t.Errorf("expected functional history body %q, got %q", "Independent", got)
	}
}

func TestIsNAString(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"N/A", true},
		{"n/a", true},
		{"No", true},
		{"NONE", true},
		{"n", true},
		{"n.", true},
		{"  no  ", true},
		{"Nabumetone", false},
		{"no known drug allergies", false},
		{"penicillin", false},
		{"8", true}, // digits strip to empty
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := IsNAString(tc.in); got != tc.want {
				t.Errorf("IsNAString(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

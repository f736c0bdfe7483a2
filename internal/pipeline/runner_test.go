package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/enable-health/rewordify/internal/intake"
	"github.com/enable-health/rewordify/internal/rewrite"
)

// echoInvoker returns the GIVEN INFORMATION block of each prompt, so the
// pipeline's masking and assembly can be observed end to end.
type echoInvoker struct {
	mu      sync.Mutex
	prompts []string
	delay   time.Duration
}

func (e *echoInvoker) Invoke(ctx context.Context, prompt, model string) (string, error) {
	e.mu.Lock()
	e.prompts = append(e.prompts, prompt)
	e.mu.Unlock()
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	_, content, found := strings.Cut(prompt, "GIVEN INFORMATION:\n")
	if !found {
		return prompt, nil
	}
	return "reworded " + content, nil
}

func (e *echoInvoker) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.prompts)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner(t *testing.T, inv rewrite.Invoker, opts Options) *Runner {
	t.Helper()
	r, err := NewRunner(rewrite.New(inv), testLogger(), opts, 3)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

const janeDoeDoc = `[-name-] Jane Doe.
[-age-] 40.
[-gender-] female.
[-pronouns-] she her.
[-enable start-]
Patient reports six months of headaches.
Past medical
Hypertension
Surgical history
None
Current medications
Ramipril
Allergies
N/A
Family History
Father with stroke.
Social History
Lives with partner Jane Doe, works as a nurse.
Functional History
Independent.
[-enable end-]`

func TestRunMasksAndRestoresSocialHistory(t *testing.T) {
	inv := &echoInvoker{}
	r := newTestRunner(t, inv, DefaultOptions())

	out, err := r.Run(context.Background(), Submission{DocumentText: janeDoeDoc})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The prompt sent for Social History must carry the placeholder, not
	// the patient name; "partner" has no keyword exemption for names and
	// stays visible.
	var socialPrompt string
	for _, p := range inv.prompts {
		if strings.Contains(p, "Lives with partner") {
			socialPrompt = p
		}
	}
	if socialPrompt == "" {
		t.Fatal("expected a social history prompt")
	}
	if strings.Contains(socialPrompt, "Jane Doe") {
		t.Error("patient name leaked into the rewrite prompt")
	}
	if !strings.Contains(socialPrompt, "<name>") {
		t.Error("expected <name> placeholder in the rewrite prompt")
	}
	if !strings.Contains(socialPrompt, "partner") {
		t.Error("expected 'partner' left unmasked")
	}

	// The assembled output restores the name.
	if !strings.Contains(out.Rewordified, "Jane Doe") {
		t.Error("expected name restored in rewordified output")
	}
	if strings.Contains(out.Rewordified, "<name>") {
		t.Error("placeholder token leaked into rewordified output")
	}
	if !strings.Contains(out.Original, "Lives with partner Jane Doe") {
		t.Error("expected original display to show unmasked raw text")
	}
}

func TestRunNAShortCircuitSkipsExternalCalls(t *testing.T) {
	inv := &echoInvoker{}
	r := newTestRunner(t, inv, DefaultOptions())

	out, err := r.Run(context.Background(), Submission{DocumentText: janeDoeDoc})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Surgical history "None" and allergies "N/A" short-circuit: 8
	// document sections minus 2 absent ones = 6 calls.
	if got := inv.calls(); got != 6 {
		t.Errorf("expected 6 external calls, got %d", got)
	}
	if !strings.Contains(out.Rewordified, "**Surgical History**:\nN/A") {
		t.Errorf("expected N/A surgical history, got %q", out.Rewordified)
	}
	if !strings.Contains(out.Rewordified, "**Allergies**:\nN/A") {
		t.Errorf("expected N/A allergies, got %q", out.Rewordified)
	}
}

func TestRunOriginalDisplayNormalizesAbsentAnswers(t *testing.T) {
	inv := &echoInvoker{}
	r := newTestRunner(t, inv, DefaultOptions())

	out, err := r.Run(context.Background(), Submission{DocumentText: janeDoeDoc})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// "None" and "N/A" answers show as N/A on the original side too, in
	// step with the rewritten side.
	if !strings.Contains(out.Original, "**Surgical History**:\nN/A") {
		t.Errorf("expected literal None shown as N/A, got %q", out.Original)
	}
	if !strings.Contains(out.Original, "**Allergies**:\nN/A") {
		t.Errorf("expected N/A allergies on original side, got %q", out.Original)
	}
	// Present answers stay verbatim.
	if !strings.Contains(out.Original, "**Past Medical**:\nHypertension") {
		t.Errorf("expected raw past medical preserved, got %q", out.Original)
	}
}

func TestRunAssemblyFollowsCanonicalOrder(t *testing.T) {
	// Delay makes completion order diverge from canonical order.
	inv := &echoInvoker{delay: 10 * time.Millisecond}
	r := newTestRunner(t, inv, DefaultOptions())

	out, err := r.Run(context.Background(), Submission{
		DocumentText:  janeDoeDoc,
		Questionnaire: "gradual onset of morning headaches",
		ICBC:          "rear-ended at low speed in March",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantOrder := []string{
		"**Questionaire Summary**",
		"**ICBC/WBC**",
		"**Summary**",
		"**Past Medical**",
		"**Surgical History**",
		"**Current Medication**",
		"**Allergies**",
		"**Family History**",
		"**Social History**",
		"**Functional History**",
	}
	pos := -1
	for _, h := range wantOrder {
		idx := strings.Index(out.Rewordified, h)
		if idx < 0 {
			t.Fatalf("missing header %q in output", h)
		}
		if idx < pos {
			t.Errorf("header %q out of canonical order", h)
		}
		pos = idx
	}
	if len(out.Sections) != 10 {
		t.Errorf("expected 10 section outcomes, got %d", len(out.Sections))
	}
}

func TestRunSkipsNAOptionalSections(t *testing.T) {
	inv := &echoInvoker{}
	r := newTestRunner(t, inv, DefaultOptions())

	out, err := r.Run(context.Background(), Submission{
		DocumentText:  janeDoeDoc,
		Questionnaire: "N/A",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(out.Rewordified, "Questionaire") {
		t.Error("expected N/A questionnaire skipped entirely")
	}
	if strings.Contains(out.Original, "ICBC") {
		t.Error("expected absent ICBC section skipped entirely")
	}
	if len(out.Sections) != 8 {
		t.Errorf("expected 8 section outcomes, got %d", len(out.Sections))
	}
}

type failingInvoker struct {
	failOn string
	echoInvoker
}

func (f *failingInvoker) Invoke(ctx context.Context, prompt, model string) (string, error) {
	if strings.Contains(prompt, f.failOn) {
		return "", errors.New("upstream unavailable")
	}
	return f.echoInvoker.Invoke(ctx, prompt, model)
}

func TestRunFailureIsAllOrNothing(t *testing.T) {
	inv := &failingInvoker{failOn: "Ramipril"}
	r := newTestRunner(t, inv, DefaultOptions())

	out, err := r.Run(context.Background(), Submission{DocumentText: janeDoeDoc})
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if out != nil {
		t.Error("expected no partial outcome on failure")
	}
	if !strings.Contains(err.Error(), string(intake.KeyCurrentMedications)) {
		t.Errorf("expected failing section named in error, got %v", err)
	}
}

func TestRunFlagsUnreliableExtraction(t *testing.T) {
	inv := &echoInvoker{}
	r := newTestRunner(t, inv, DefaultOptions())

	doc := "[-enable start-]\nfree text with no section headers at all\n[-enable end-]"
	out, err := r.Run(context.Background(), Submission{DocumentText: doc})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Unreliable {
		t.Error("expected unreliable extraction flag")
	}
	if out.HeadersFound != 0 {
		t.Errorf("expected 0 headers found, got %d", out.HeadersFound)
	}
}

func TestRunInstructionOverride(t *testing.T) {
	inv := &echoInvoker{}
	r := newTestRunner(t, inv, DefaultOptions())

	_, err := r.Run(context.Background(), Submission{
		DocumentText: janeDoeDoc,
		Instructions: map[intake.SectionKey]string{
			intake.KeySummary: "Summarize in exactly two sentences",
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	found := false
	for _, p := range inv.prompts {
		if strings.Contains(p, "Summarize in exactly two sentences") {
			found = true
		}
	}
	if !found {
		t.Error("expected instruction override in a prompt")
	}
}

func TestRunTracesRecordWhatWasSent(t *testing.T) {
	inv := &echoInvoker{}
	r := newTestRunner(t, inv, DefaultOptions())

	out, err := r.Run(context.Background(), Submission{DocumentText: janeDoeDoc})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Traces) != inv.calls() {
		t.Errorf("expected %d traces, got %d", inv.calls(), len(out.Traces))
	}
	for _, tr := range out.Traces {
		if tr.ID == "" || tr.Instruction == "" {
			t.Errorf("incomplete trace %+v", tr)
		}
	}
}

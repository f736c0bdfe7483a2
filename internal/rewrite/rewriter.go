// Package rewrite turns one section of intake text into its
// clinician-readable rewording via the external rewriting capability.
package rewrite

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/enable-health/rewordify/internal/intake"
)

// Invoker is the external text-rewriting capability: one prompt in, the
// rewritten text out. Failures propagate unchanged; no retries happen at
// this layer.
type Invoker interface {
	Invoke(ctx context.Context, prompt, model string) (string, error)
}

// Request describes one section rewrite.
type Request struct {
	Key         intake.SectionKey
	Header      string // display label, used verbatim in the output
	Instruction string
	Content     string
	Model       string
	// Clean runs a preliminary call that normalizes attachment-only
	// content ("see attached report") to N/A before the main rewrite.
	Clean bool
}

// Trace records the exact prompt pieces sent for one call, for the audit
// display.
type Trace struct {
	ID          string            `json:"id"`
	Key         intake.SectionKey `json:"section"`
	Kind        string            `json:"kind"` // "reword" or "clean"
	Instruction string            `json:"instruction"`
	Content     string            `json:"content"`
}

// Result is one rewritten, labeled section.
type Result struct {
	Labeled string
	Traces  []Trace
	// Calls counts external invocations made for this section.
	Calls int
}

// Rewriter drives section rewrites through an Invoker.
type Rewriter struct {
	invoker Invoker
}

func New(invoker Invoker) *Rewriter {
	return &Rewriter{invoker: invoker}
}

const cleanInstruction = `If the following text does nothing but refer the reader to an external document or attached report (for example "see attached report" or "refer to the enclosed letter"), reply with exactly N/A. Otherwise reply with the text exactly as given, unchanged.`

// Reword produces the labeled rewording of one section. Content that reads
// as an absence marker short-circuits to "{header}:\nN/A" without touching
// the external capability, so empty sections cost nothing and come out
// deterministic.
func (r *Rewriter) Reword(ctx context.Context, req Request) (Result, error) {
	var res Result

	if intake.IsNAString(req.Content) {
		res.Labeled = naLabel(req.Header)
		return res, nil
	}

	content := req.Content
	if req.Clean {
		cleaned, trace, err := r.call(ctx, req, "clean", cleanInstruction, content)
		res.Traces = append(res.Traces, trace)
		res.Calls++
		if err != nil {
			return res, fmt.Errorf("clean pass for %s: %w", req.Key, err)
		}
		content = cleaned
		if intake.IsNAString(content) {
			res.Labeled = naLabel(req.Header)
			return res, nil
		}
	}

	response, trace, err := r.call(ctx, req, "reword", req.Instruction, content)
	res.Traces = append(res.Traces, trace)
	res.Calls++
	if err != nil {
		return res, fmt.Errorf("reword %s: %w", req.Key, err)
	}

	res.Labeled = req.Header + ":\n" + strings.TrimSpace(response)
	return res, nil
}

func (r *Rewriter) call(ctx context.Context, req Request, kind, instruction, content string) (string, Trace, error) {
	trace := Trace{
		ID:          uuid.NewString(),
		Key:         req.Key,
		Kind:        kind,
		Instruction: instruction,
		Content:     content,
	}
	out, err := r.invoker.Invoke(ctx, buildPrompt(instruction, content), req.Model)
	return out, trace, err
}

// buildPrompt combines the editing instruction with the section content.
func buildPrompt(instruction, content string) string {
	var sb strings.Builder
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString(instruction)
	sb.WriteString("\n\nGIVEN INFORMATION:\n")
	sb.WriteString(content)
	return sb.String()
}

func naLabel(header string) string {
	return header + ":\nN/A"
}

// Package pipeline runs one intake submission end to end: locate the
// region of interest, split it into sections, mask PII around the Social
// History rewrite, reword every section, and reassemble the note in
// canonical order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/enable-health/rewordify/internal/intake"
	"github.com/enable-health/rewordify/internal/pii"
	"github.com/enable-health/rewordify/internal/rewrite"
)

// Options is the per-deployment configuration of the canonical pipeline:
// which sections are active, where PII masking and the clean pass apply,
// and how strictly region markers are matched.
type Options struct {
	Sections          []intake.SectionKey
	PIIMasking        map[intake.SectionKey]bool
	CleanPass         map[intake.SectionKey]bool
	MarkerFallback    intake.FallbackMode
	ExciseIgnoreBlock bool
}

// DefaultOptions enables every canonical section, masks PII around the
// Social History rewrite, excises the ICBC sub-block, and uses lenient
// marker fallback.
func DefaultOptions() Options {
	return Options{
		Sections: intake.AllKeys,
		PIIMasking: map[intake.SectionKey]bool{
			intake.KeySocialHistory: true,
		},
		MarkerFallback:    intake.FallbackLenient,
		ExciseIgnoreBlock: true,
	}
}

// Submission is one user request: the extracted document text plus the
// caller's overrides and the raw optional sections that bypass document
// extraction.
type Submission struct {
	DocumentText  string
	Model         string
	Instructions  map[intake.SectionKey]string
	Questionnaire string
	ICBC          string
}

// SectionOutcome pairs a section's raw text with its rewording.
type SectionOutcome struct {
	Key       intake.SectionKey `json:"key"`
	Header    string            `json:"header"`
	RawText   string            `json:"raw_text"`
	Rewritten string            `json:"rewritten"`
	Absent    bool              `json:"absent"`
}

// Outcome is the assembled result of one submission.
type Outcome struct {
	ID           string
	Rewordified  string
	Original     string
	Sections     []SectionOutcome
	Traces       []rewrite.Trace
	Unreliable   bool
	HeadersFound int
}

// Rewriter is the narrow dependency Runner needs from the rewrite layer.
type Rewriter interface {
	Reword(ctx context.Context, req rewrite.Request) (rewrite.Result, error)
}

// Runner executes submissions. Stateless across requests; every Run is
// self-contained.
type Runner struct {
	rewriter      Rewriter
	log           *slog.Logger
	opts          Options
	maxConcurrent int
	defaults      map[intake.SectionKey]string
}

// NewRunner builds a Runner. Default instructions load once here; a
// missing prompt resource is a configuration error, not a per-request one.
func NewRunner(rw Rewriter, log *slog.Logger, opts Options, maxConcurrent int) (*Runner, error) {
	defaults, err := rewrite.DefaultInstructions()
	if err != nil {
		return nil, err
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if len(opts.Sections) == 0 {
		opts.Sections = intake.AllKeys
	}
	return &Runner{
		rewriter:      rw,
		log:           log,
		opts:          opts,
		maxConcurrent: maxConcurrent,
		defaults:      defaults,
	}, nil
}

// sectionJob is one rewrite unit, held in canonical order.
type sectionJob struct {
	req     rewrite.Request
	raw     string // unmasked original, for the side-by-side display
	absent  bool
	restore pii.RestoreMap
	res     rewrite.Result
}

// Run executes the full pipeline for one submission with the Runner's
// configured options.
func (r *Runner) Run(ctx context.Context, sub Submission) (*Outcome, error) {
	return r.RunWith(ctx, sub, r.opts)
}

// RunWith executes the full pipeline for one submission. Rewrite calls fan
// out with bounded concurrency; assembly always follows canonical section
// order, never completion order. One failing rewrite cancels the rest and
// fails the whole submission.
//
// opts lets a caller vary masking, fallback, and the clean pass per
// request without rebuilding the Runner.
func (r *Runner) RunWith(ctx context.Context, sub Submission, opts Options) (*Outcome, error) {
	if len(opts.Sections) == 0 {
		opts.Sections = r.opts.Sections
	}
	attrs := intake.ExtractAttributes(sub.DocumentText)

	regionOpts := intake.RegionOptions{Fallback: opts.MarkerFallback}
	if opts.ExciseIgnoreBlock {
		regionOpts.IgnoreStart = intake.DefaultIgnoreStart
		regionOpts.IgnoreEnd = intake.DefaultIgnoreEnd
	}
	region := intake.LocateRegion(sub.DocumentText, regionOpts)
	split := intake.SplitSections(region)

	jobs := r.buildJobs(sub, split, attrs, opts)

	if err := r.rewordAll(ctx, jobs); err != nil {
		return nil, err
	}

	outcome := &Outcome{
		ID:           uuid.NewString(),
		Unreliable:   split.Unreliable(),
		HeadersFound: split.HeadersFound,
	}

	var rewordified, original []string
	for i := range jobs {
		j := &jobs[i]
		labeled := j.res.Labeled
		if len(j.restore) > 0 {
			labeled = pii.Unmask(labeled, j.restore)
		}

		// Absent answers ("", "None", "No", "N/A") display as N/A on both
		// sides, matching what the rewritten column shows for them.
		rawDisplay := j.raw
		if j.absent {
			rawDisplay = "N/A"
		}
		rewordified = append(rewordified, labeled)
		original = append(original, j.req.Header+":\n"+rawDisplay)

		outcome.Sections = append(outcome.Sections, SectionOutcome{
			Key:       j.req.Key,
			Header:    j.req.Header,
			RawText:   j.raw,
			Rewritten: labeled,
			Absent:    j.absent,
		})
		outcome.Traces = append(outcome.Traces, j.res.Traces...)
	}

	outcome.Rewordified = strings.Join(rewordified, "\n\n")
	outcome.Original = strings.Join(original, "\n\n")
	return outcome, nil
}

// buildJobs assembles the canonical-order work list. The raw
// Questionnaire/ICBC sections join only when the caller supplied real
// content; document sections are always present, N/A ones short-circuit
// inside the rewriter.
func (r *Runner) buildJobs(sub Submission, split intake.Split, attrs intake.Attributes, opts Options) []sectionJob {
	jobs := make([]sectionJob, 0, len(opts.Sections))

	for _, key := range opts.Sections {
		var raw string
		switch key {
		case intake.KeyQuestionnaire:
			if intake.IsNAString(sub.Questionnaire) {
				continue
			}
			raw = sub.Questionnaire
		case intake.KeyICBC:
			if intake.IsNAString(sub.ICBC) {
				continue
			}
			raw = sub.ICBC
		default:
			raw = split.Section(key).RawText
		}

		instruction := r.defaults[key]
		if override, ok := sub.Instructions[key]; ok && strings.TrimSpace(override) != "" {
			instruction = override
		}

		content := raw
		var restore pii.RestoreMap
		if opts.PIIMasking[key] {
			content, restore = pii.Mask(raw, attrs)
		}

		jobs = append(jobs, sectionJob{
			req: rewrite.Request{
				Key:         key,
				Header:      "**" + intake.DisplayName(key) + "**",
				Instruction: instruction,
				Content:     content,
				Model:       sub.Model,
				Clean:       opts.CleanPass[key],
			},
			raw:     raw,
			absent:  intake.IsNAString(raw),
			restore: restore,
		})
	}

	return jobs
}

// rewordAll fans the jobs out to the rewriter with bounded concurrency
// and writes each result back into its job slot. The first failure
// cancels the in-flight calls; the submission is all-or-nothing.
func (r *Runner) rewordAll(ctx context.Context, jobs []sectionJob) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type rewordResult struct {
		idx int
		res rewrite.Result
		err error
	}
	results := make(chan rewordResult, len(jobs))
	sem := make(chan struct{}, r.maxConcurrent)

	for i := range jobs {
		sem <- struct{}{}
		go func(i int) {
			defer func() { <-sem }()
			res, err := r.rewriter.Reword(runCtx, jobs[i].req)
			results <- rewordResult{idx: i, res: res, err: err}
		}(i)
	}

	var firstErr error
	for range jobs {
		res := <-results
		jobs[res.idx].res = res.res
		if res.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("section %s: %w", jobs[res.idx].req.Key, res.err)
			cancel()
		}
	}
	return firstErr
}

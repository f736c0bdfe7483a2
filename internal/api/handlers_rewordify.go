package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	ghtml "github.com/yuin/goldmark/renderer/html"

	"github.com/enable-health/rewordify/internal/intake"
	"github.com/enable-health/rewordify/internal/parser"
	"github.com/enable-health/rewordify/internal/pipeline"
)

// markdown renders the assembled notes for display. Hard wraps keep the
// one-line-per-finding layout of the source documents.
var markdown = goldmark.New(
	goldmark.WithRendererOptions(ghtml.WithHardWraps()),
)

func (s *Server) handleRewordify(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	docText, err := s.documentText(w, r)
	if err != nil {
		return // documentText already wrote the error response
	}

	sub := pipeline.Submission{
		DocumentText:  docText,
		Model:         r.FormValue("model"),
		Questionnaire: r.FormValue("questionaire"),
		ICBC:          r.FormValue("icbc"),
		Instructions:  instructionOverrides(r),
	}

	opts, err := requestOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := s.runner.RunWith(r.Context(), sub, opts)
	if err != nil {
		s.log.Error("rewordify failed", "error", err)
		jsonError(w, "rewording failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":               out.ID,
		"rewordified":      out.Rewordified,
		"original":         out.Original,
		"rewordified_html": renderHTML(out.Rewordified),
		"original_html":    renderHTML(out.Original),
		"sections":         out.Sections,
		"traces":           out.Traces,
		"unreliable":       out.Unreliable,
		"headers_found":    out.HeadersFound,
	})
}

// documentText resolves the submission body: an inline "text" field wins,
// otherwise the uploaded file is parsed by extension. On failure it writes
// the error response and returns a non-nil error.
func (s *Server) documentText(w http.ResponseWriter, r *http.Request) (string, error) {
	if text := r.FormValue("text"); strings.TrimSpace(text) != "" {
		return text, nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file or text is required: "+err.Error(), http.StatusBadRequest)
		return "", err
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		err := fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
		jsonError(w, err.Error(), http.StatusBadRequest)
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return "", err
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		err := fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return "", err
	}

	p, err := parser.ForFile(filename, parser.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext})
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return "", err
	}
	text, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		s.log.Error("parse failed", "filename", filename, "error", err)
		jsonError(w, "failed to parse document: "+err.Error(), http.StatusBadRequest)
		return "", err
	}
	return text, nil
}

// instructionOverrides collects per-section prompt overrides from
// "<key>_prompt" form fields.
func instructionOverrides(r *http.Request) map[intake.SectionKey]string {
	var overrides map[intake.SectionKey]string
	for _, key := range intake.AllKeys {
		v := r.FormValue(string(key) + "_prompt")
		if strings.TrimSpace(v) == "" {
			continue
		}
		if overrides == nil {
			overrides = make(map[intake.SectionKey]string)
		}
		overrides[key] = v
	}
	return overrides
}

// requestOptions builds per-request pipeline options from the form
// toggles: pii=off, fallback=strict, clean=<keys|all>.
func requestOptions(r *http.Request) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()

	if r.FormValue("pii") == "off" {
		opts.PIIMasking = nil
	}

	switch v := r.FormValue("fallback"); v {
	case "", "lenient":
	case "strict":
		opts.MarkerFallback = intake.FallbackStrict
	default:
		return opts, fmt.Errorf("unknown fallback mode: %q", v)
	}

	if v := r.FormValue("clean"); v != "" {
		opts.CleanPass = make(map[intake.SectionKey]bool)
		if v == "all" {
			for _, key := range intake.AllKeys {
				opts.CleanPass[key] = true
			}
		} else {
			for _, raw := range strings.Split(v, ",") {
				key := intake.SectionKey(strings.TrimSpace(raw))
				if intake.DisplayName(key) == "" {
					return opts, fmt.Errorf("unknown section in clean: %q", raw)
				}
				opts.CleanPass[key] = true
			}
		}
	}

	return opts, nil
}

func renderHTML(md string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return ""
	}
	return buf.String()
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}

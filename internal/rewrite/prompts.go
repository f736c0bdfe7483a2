package rewrite

import (
	"embed"
	"fmt"
	"strings"

	"github.com/enable-health/rewordify/internal/intake"
)

//go:embed prompts/*.txt
var promptFS embed.FS

// DefaultInstruction loads the embedded default editing instruction for a
// section key. An unknown key is a configuration error.
func DefaultInstruction(key intake.SectionKey) (string, error) {
	b, err := promptFS.ReadFile("prompts/" + string(key) + "_prompt.txt")
	if err != nil {
		return "", fmt.Errorf("default prompt for section %q: %w", key, err)
	}
	return strings.TrimSpace(string(b)), nil
}

// DefaultInstructions loads the defaults for every canonical section.
func DefaultInstructions() (map[intake.SectionKey]string, error) {
	out := make(map[intake.SectionKey]string, len(intake.AllKeys))
	for _, key := range intake.AllKeys {
		ins, err := DefaultInstruction(key)
		if err != nil {
			return nil, err
		}
		out[key] = ins
	}
	return out, nil
}

package parser

import (
	"fmt"
	"io"
	"strings"
)

// TextParser handles plain text dumps.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return CleanDocumentText(text), nil
}

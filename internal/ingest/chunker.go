package ingest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Policy is the window/overlap pair used when splitting one file.
type Policy struct {
	Window  int
	Overlap int
}

// Policies selects a Policy per file. Short plain-text files get smaller
// windows so their chunks compete better against long documents in the same
// similarity index.
type Policies struct {
	Text    Policy
	Default Policy
}

func DefaultPolicies() Policies {
	return Policies{
		Text:    Policy{Window: 350, Overlap: 120},
		Default: Policy{Window: 750, Overlap: 150},
	}
}

func (p Policies) For(filename string) Policy {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		return p.Text
	default:
		return p.Default
	}
}

var newlineRe = regexp.MustCompile(`[\r\n]+`)

// Split slides a window of `window` characters over the normalized text,
// advancing window-overlap each step. The last window degenerates to the
// remaining tail. Overlap must stay below the window size or the cursor would
// never advance.
func Split(text string, window, overlap int) ([]string, error) {
	if window <= 0 {
		return nil, fmt.Errorf("chunk window must be positive, got %d", window)
	}
	if overlap < 0 || overlap >= window {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", overlap, window)
	}
	normalized := strings.TrimSpace(newlineRe.ReplaceAllString(text, " "))
	if normalized == "" {
		return nil, nil
	}

	runes := []rune(normalized)
	step := window - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + window
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

// Tag prefixes a chunk with its human-readable source so provenance survives
// even if metadata is dropped downstream.
func Tag(filename, chunk string) string {
	return fmt.Sprintf("[SOURCE: %s] %s", filename, chunk)
}

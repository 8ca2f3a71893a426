// Package ai defines the intake collaborators: speech-to-text and preference extraction.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	_ "embed"

	"github.com/spigell/placement-assistant/internal/preferences"
)

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// Extractor reads client preferences out of an intake transcript.
type Extractor interface {
	Extract(ctx context.Context, transcript string) (preferences.ClientPreferences, error)
}

//go:embed prompt.md
var extractionPrompt string

// ExtractionPrompt is the system instruction given to every extraction model.
func ExtractionPrompt() string {
	return strings.TrimSpace(extractionPrompt)
}

// ParseExtraction decodes a model response into preferences.
func ParseExtraction(raw string) (preferences.ClientPreferences, error) {
	cleaned := ExtractJSON(raw)
	if cleaned == "" {
		return preferences.ClientPreferences{}, fmt.Errorf("empty extraction response")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return preferences.ClientPreferences{}, fmt.Errorf("parse extraction response: %w", err)
	}

	return preferences.FromMap(data)
}

// ExtractJSON strips code fences and surrounding prose from a model response.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	if !strings.HasPrefix(raw, "{") {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start != -1 && end > start {
			raw = raw[start : end+1]
		}
	}
	return raw
}

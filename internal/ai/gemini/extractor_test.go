package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spigell/placement-assistant/internal/preferences"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubGenerator struct {
	response    string
	err         error
	lastSystem  string
	lastMessage string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.lastSystem = system
	s.lastMessage = message
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func TestExtractorExtract(t *testing.T) {
	stub := &stubGenerator{response: "```json\n" + `{
		"name_of_patient": "Walter",
		"care_level": "Assisted Living",
		"preferred_location": ["Pittsford, NY", "Brighton, NY"],
		"max_budget": "$6,500",
		"enhanced": "Yes",
		"move_in_window": "within 1-2 months"
	}` + "\n```"}

	extractor := NewExtractor(stub, zap.NewNop(), 0)

	prefs, err := extractor.Extract(context.Background(), "Walter needs help with meals.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if prefs.CareLevel != preferences.CareAssisted {
		t.Fatalf("unexpected care level: %v", prefs.CareLevel)
	}
	if prefs.MaxBudget != 6500 {
		t.Fatalf("unexpected budget: %d", prefs.MaxBudget)
	}
	if prefs.Enhanced != preferences.Yes {
		t.Fatalf("unexpected enhanced: %v", prefs.Enhanced)
	}
	if len(prefs.Locations) != 2 {
		t.Fatalf("unexpected locations: %v", prefs.Locations)
	}
	if prefs.MoveIn != preferences.MoveInNearTerm {
		t.Fatalf("unexpected move-in window: %v", prefs.MoveIn)
	}

	if stub.lastMessage != "Walter needs help with meals." {
		t.Fatalf("unexpected message: %q", stub.lastMessage)
	}
	if !strings.Contains(stub.lastSystem, "care_level") {
		t.Fatalf("expected extraction prompt as system instruction")
	}
}

func TestExtractorPropagatesGeneratorError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("boom")}
	extractor := NewExtractor(stub, zap.NewNop(), 0)

	if _, err := extractor.Extract(context.Background(), "transcript"); err == nil {
		t.Fatal("expected error")
	}
}

func TestExtractorRejectsNonJSON(t *testing.T) {
	stub := &stubGenerator{response: "Sorry, I cannot help with that."}
	extractor := NewExtractor(stub, zap.NewNop(), 0)

	if _, err := extractor.Extract(context.Background(), "transcript"); err == nil {
		t.Fatal("expected error for non JSON response")
	}
}

func TestExtractorLogsProvider(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	stub := &stubGenerator{response: `{"care_level": "Memory Care"}`}
	extractor := NewExtractor(stub, zap.New(core), 10)

	if _, err := extractor.Extract(context.Background(), "a fairly long transcript that gets truncated"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.FilterMessage("sending transcript to model").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log, got %d", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["ai_provider"] != "gemini" || fields["ai_model"] != "stub-model" {
		t.Fatalf("unexpected provider fields: %v", fields)
	}
	preview, _ := fields["transcript_preview"].(string)
	if len(preview) > 20 {
		t.Fatalf("expected truncated preview, got %q", preview)
	}
}

package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/placement-assistant/internal/community"
	"github.com/spigell/placement-assistant/internal/filtering"
	"github.com/spigell/placement-assistant/internal/preferences"
	"github.com/spigell/placement-assistant/internal/ranking"
)

func TestLoadConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	config, err := loadConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Preferences != "preferences.json" {
		t.Fatalf("unexpected preferences path: %q", config.Preferences)
	}
	if config.Output.AllFile != "all_results.csv" || config.Output.TopFile != "top_results.csv" {
		t.Fatalf("unexpected output files: %+v", config.Output)
	}
	if config.Ranking.Policy != string(ranking.PriorityFirst) || config.Ranking.TopN != 5 {
		t.Fatalf("unexpected ranking config: %+v", config.Ranking)
	}
	if !config.Geocoding.Enabled || config.Geocoding.MinInterval != time.Second {
		t.Fatalf("unexpected geocoding config: %+v", config.Geocoding)
	}
	if config.Geocoding.DefaultLocation.Lat != ranking.DefaultClientLocation.Lat {
		t.Fatalf("unexpected default location: %+v", config.Geocoding.DefaultLocation)
	}
	if config.AI.Provider != "openai" || config.AI.OpenAI.TranscriptionModel != "whisper-1" {
		t.Fatalf("unexpected ai config: %+v", config.AI)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	yaml := `
dataset: communities.xlsx
ranking:
  policy: distance-first
  top-n: 3
filters:
  disable: [budget]
geocoding:
  min-interval: 100ms
  timeout: 5s
ai:
  provider: gemini
  gemini:
    model: gemini-2.5-pro
`
	if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
		t.Fatalf("reading config: %v", err)
	}

	config, err := loadConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Dataset != "communities.xlsx" {
		t.Fatalf("unexpected dataset: %q", config.Dataset)
	}
	if config.Ranking.Policy != "distance-first" || config.Ranking.TopN != 3 {
		t.Fatalf("unexpected ranking: %+v", config.Ranking)
	}
	if len(config.Filters.Disable) != 1 || config.Filters.Disable[0] != "budget" {
		t.Fatalf("unexpected disabled filters: %v", config.Filters.Disable)
	}
	if config.Geocoding.MinInterval != time.Second {
		t.Fatalf("expected min interval to be raised to 1s, got %s", config.Geocoding.MinInterval)
	}
	if config.Geocoding.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout: %s", config.Geocoding.Timeout)
	}
	if config.AI.Gemini.Model != "gemini-2.5-pro" || config.AI.Gemini.MaxRetries != 3 {
		t.Fatalf("unexpected gemini config: %+v", config.AI.Gemini)
	}
}

func TestLoadConfigRejectsUnknownPolicy(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ranking.policy", "alphabetical")

	if _, err := loadConfig(v); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestPrepareFilters(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	steps := prepareFilters(FiltersConfig{Disable: []string{"budget", " ", "nonexistent"}}, zap.New(core))

	statuses := filtering.Describe(steps)
	disabled := 0
	for _, s := range statuses {
		if !s.Enabled {
			disabled++
			if s.Name != "budget" {
				t.Fatalf("unexpected disabled filter: %s", s.Name)
			}
		}
	}
	if disabled != 1 {
		t.Fatalf("expected one disabled filter, got %d", disabled)
	}

	if logs.FilterMessage("unknown filter in configuration").Len() != 1 {
		t.Fatalf("expected warning for unknown filter")
	}
}

func TestRunMatchRequiresDataset(t *testing.T) {
	if _, err := runMatch(context.Background(), &Config{}, zap.NewNop()); err == nil {
		t.Fatal("expected error without dataset")
	}
}

func TestPrintShortlist(t *testing.T) {
	table := community.NewTable(community.Schema{Columns: []string{community.ColumnServiceType}}, []community.Record{
		{ID: "1", Name: "Maple Grove", ServiceType: "Assisted Living", Town: "Pittsford", State: "NY", MonthlyFee: 5200, HasFee: true, Priority: 1, Distance: 7.26, HasDistance: true},
		{ID: "2", Name: "Cedar House", ServiceType: "Assisted Living", Priority: 3},
	})
	result := ranking.Result{Policy: ranking.PriorityFirst, Ranked: table, Shortlist: table}

	var buf bytes.Buffer
	printShortlist(&buf, result)
	out := buf.String()

	for _, want := range []string{"Maple Grove", "Pittsford, NY", "$5200", "7.3", "Cedar House", "N/A", "2 of 2 communities shortlisted"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestNewIntakeServiceProviders(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := newIntakeService(context.Background(), AIConfig{Provider: "claude"}, true, zap.NewNop()); err == nil {
		t.Fatal("expected error for unsupported provider")
	}

	if _, err := newIntakeService(context.Background(), AIConfig{Provider: "openai"}, true, zap.NewNop()); err == nil {
		t.Fatal("expected error without an openai key")
	}

	svc, err := newIntakeService(context.Background(), AIConfig{OpenAI: OpenAIConfig{APIKey: "key"}}, false, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Transcriber != nil {
		t.Fatal("transcriber should not be built for transcript input")
	}
	if svc.Extractor == nil {
		t.Fatal("expected extractor")
	}
}

func TestNeedsTranscriber(t *testing.T) {
	tests := map[string]bool{
		"call.zip":  true,
		"call.m4a":  true,
		"notes.txt": false,
		"NOTES.TXT": false,
	}
	for input, want := range tests {
		if got := needsTranscriber(input); got != want {
			t.Fatalf("needsTranscriber(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestRedacted(t *testing.T) {
	config := &Config{AI: AIConfig{OpenAI: OpenAIConfig{APIKey: "secret"}}}

	c := redacted(config)
	if c.AI.OpenAI.APIKey != "***" {
		t.Fatalf("expected key to be redacted")
	}
	if config.AI.OpenAI.APIKey != "secret" {
		t.Fatalf("original config must not change")
	}
}

func TestPrintFilterReport(t *testing.T) {
	steps := filtering.Default()
	filtering.DisableByName(steps, "budget", "disabled by configuration")

	table, err := community.Normalize(community.RawTable{
		Headers: []string{community.ColumnServiceType, community.ColumnWaitlist},
		Rows: [][]string{
			{"Assisted Living", "Available"},
			{"Memory Care", "Available"},
			{"Assisted Living", "6+ months"},
		},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	cfg := &filtering.Config{Preferences: preferences.ClientPreferences{
		CareLevel: preferences.CareAssisted,
		MoveIn:    preferences.MoveInImmediate,
		MaxBudget: 3000,
	}}
	_, reports, err := filtering.Run(context.Background(), cfg, filtering.Deps{}, steps, table)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var buf bytes.Buffer
	printFilterReport(&buf, filtering.Summarize(steps, reports))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	if len(lines) != 6 {
		t.Fatalf("expected header and five filters, got:\n%s", buf.String())
	}

	expect := map[string][]string{
		"care_level": {"yes", "3", "1", "2", "care_level=Assisted Living"},
		"move_in":    {"yes", "2", "1", "1", "allowed=Available,Unconfirmed", "window=Immediate"},
		"budget":     {"no", "disabled by configuration"},
	}
	for _, line := range lines[1:] {
		name := strings.Fields(line)[0]
		for _, want := range expect[name] {
			if !strings.Contains(line, want) {
				t.Fatalf("expected %q in %s row: %q", want, name, line)
			}
		}
	}
}

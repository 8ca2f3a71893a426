// Package preferences models what a prospective resident asked for during intake.
package preferences

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// DefaultLocation is used when the intake did not mention any place.
const DefaultLocation = "Rochester, NY"

// ClientPreferences is the structured result of the intake conversation.
// It is treated as a value: a matching run never changes it.
type ClientPreferences struct {
	Name             string       `json:"name_of_patient,omitempty"`
	Age              string       `json:"age_of_patient,omitempty"`
	Reason           string       `json:"injury_or_reason,omitempty"`
	CareLevel        CareLevel    `json:"care_level"`
	Locations        []string     `json:"preferred_location"`
	MaxBudget        int          `json:"max_budget,omitempty"`
	Enhanced         TriState     `json:"enhanced"`
	Enriched         TriState     `json:"enriched"`
	MoveIn           MoveInWindow `json:"move_in_window"`
	PetFriendly      TriState     `json:"pet_friendly"`
	Contact          string       `json:"primary_contact_information,omitempty"`
	TourAvailability string       `json:"tour_availability,omitempty"`
	MentalStatus     string       `json:"mentally,omitempty"`
	Keywords         []string     `json:"other_keywords,omitempty"`
	Notes            string       `json:"notes,omitempty"`
}

// HasBudget reports whether a monthly budget cap was given.
func (p ClientPreferences) HasBudget() bool {
	return p.MaxBudget > 0
}

// raw mirrors the extraction JSON. Every field is loosely typed: models return
// lists or objects where a string is expected, and that must not fail decoding.
type raw struct {
	Name             any `mapstructure:"name_of_patient"`
	Age              any `mapstructure:"age_of_patient"`
	Reason           any `mapstructure:"injury_or_reason"`
	CareLevel        any `mapstructure:"care_level"`
	Locations        any `mapstructure:"preferred_location"`
	MaxBudget        any `mapstructure:"max_budget"`
	Enhanced         any `mapstructure:"enhanced"`
	Enriched         any `mapstructure:"enriched"`
	MoveIn           any `mapstructure:"move_in_window"`
	PetFriendly      any `mapstructure:"pet_friendly"`
	Contact          any `mapstructure:"primary_contact_information"`
	TourAvailability any `mapstructure:"tour_availability"`
	MentalStatus     any `mapstructure:"mentally"`
	Keywords         any `mapstructure:"other_keywords"`
	Notes            any `mapstructure:"notes"`
}

// FromMap builds preferences from a decoded extraction response.
// Missing keys leave the corresponding preference Unknown or unset.
func FromMap(m map[string]any) (ClientPreferences, error) {
	var r raw

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &r,
		ZeroFields:       true,
	})
	if err != nil {
		return ClientPreferences{}, fmt.Errorf("creating decoder: %w", err)
	}

	if err := decoder.Decode(normalizeKeys(m)); err != nil {
		return ClientPreferences{}, fmt.Errorf("decoding preferences: %w", err)
	}

	p := ClientPreferences{
		Name:             flatten(r.Name),
		Age:              flatten(r.Age),
		Reason:           flatten(r.Reason),
		CareLevel:        ParseCareLevel(flatten(r.CareLevel)),
		Locations:        stringList(r.Locations),
		MaxBudget:        ParseBudget(r.MaxBudget),
		Enhanced:         ParseTriState(r.Enhanced),
		Enriched:         ParseTriState(r.Enriched),
		MoveIn:           ParseMoveInWindow(flatten(r.MoveIn)),
		PetFriendly:      ParseTriState(r.PetFriendly),
		Contact:          flatten(r.Contact),
		TourAvailability: flatten(r.TourAvailability),
		MentalStatus:     flatten(r.MentalStatus),
		Keywords:         stringList(r.Keywords),
		Notes:            flatten(r.Notes),
	}

	if len(p.Locations) == 0 {
		p.Locations = []string{DefaultLocation}
	}

	return p, nil
}

// Parse decodes a JSON object into preferences.
func Parse(data []byte) (ClientPreferences, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return ClientPreferences{}, fmt.Errorf("parsing preferences json: %w", err)
	}
	return FromMap(m)
}

// Load reads preferences from a JSON file.
func Load(path string) (ClientPreferences, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ClientPreferences{}, fmt.Errorf("reading preferences file %q: %w", path, err)
	}

	p, err := Parse(data)
	if err != nil {
		return ClientPreferences{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Save writes preferences as indented JSON that Load accepts.
func Save(path string, p ClientPreferences) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling preferences: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing preferences file %q: %w", path, err)
	}
	return nil
}

// normalizeKeys lower-cases keys and maps spaces and dashes to underscores
// so "Care Level" and "care-level" both land on care_level.
func normalizeKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		key := strings.ToLower(strings.TrimSpace(k))
		key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
		out[key] = v
	}
	return out
}

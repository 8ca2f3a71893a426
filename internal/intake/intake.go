// Package intake turns a recorded intake call into client preferences.
package intake

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/ai"
	"github.com/spigell/placement-assistant/internal/preferences"
)

// Service runs transcription then extraction.
type Service struct {
	Transcriber ai.Transcriber
	Extractor   ai.Extractor
	Logger      *zap.Logger
}

// Result carries the transcript alongside the extracted preferences.
type Result struct {
	Source      string
	Transcript  string
	Preferences preferences.ClientPreferences
	Duration    time.Duration
}

// Run accepts a zip archive, a bare audio file, or a .txt transcript.
// Plain transcripts skip the speech-to-text step.
func (s *Service) Run(ctx context.Context, input string) (*Result, error) {
	if s.Extractor == nil {
		return nil, errors.New("intake: extractor is required")
	}

	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()

	transcript, source, err := s.transcript(ctx, input)
	if err != nil {
		return nil, err
	}
	log.Info("transcript ready",
		zap.String("source", source),
		zap.Int("transcript_length", len(transcript)),
	)

	prefs, err := s.Extractor.Extract(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("extract preferences: %w", err)
	}

	result := &Result{
		Source:      source,
		Transcript:  transcript,
		Preferences: prefs,
		Duration:    time.Since(start),
	}
	log.Info("preferences extracted",
		zap.String("care_level", string(prefs.CareLevel)),
		zap.Strings("locations", prefs.Locations),
		zap.Int("max_budget", prefs.MaxBudget),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (s *Service) transcript(ctx context.Context, input string) (string, string, error) {
	if strings.EqualFold(filepath.Ext(input), ".txt") {
		data, err := os.ReadFile(input)
		if err != nil {
			return "", "", fmt.Errorf("read transcript: %w", err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", "", fmt.Errorf("transcript %s is empty", input)
		}
		return text, filepath.Base(input), nil
	}

	if s.Transcriber == nil {
		return "", "", errors.New("intake: transcriber is required for audio input")
	}

	name, audio, err := OpenAudio(input)
	if err != nil {
		return "", "", err
	}
	defer audio.Close()

	text, err := s.Transcriber.Transcribe(ctx, name, audio)
	if err != nil {
		return "", "", fmt.Errorf("transcribe audio: %w", err)
	}
	return text, name, nil
}

// Save writes the transcript next to the preferences file when transcriptPath is set.
func Save(result *Result, prefsPath, transcriptPath string) error {
	if result == nil {
		return errors.New("intake: nothing to save")
	}
	if err := preferences.Save(prefsPath, result.Preferences); err != nil {
		return err
	}
	if transcriptPath == "" {
		return nil
	}
	if err := os.WriteFile(transcriptPath, []byte(result.Transcript+"\n"), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

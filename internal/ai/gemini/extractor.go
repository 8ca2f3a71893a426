package gemini

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/spigell/placement-assistant/internal/ai"
	"github.com/spigell/placement-assistant/internal/logger"
	"github.com/spigell/placement-assistant/internal/preferences"
	"github.com/spigell/placement-assistant/internal/utils"
	"go.uber.org/zap"
)

const (
	providerName        = "gemini"
	defaultMaxLogLength = 200
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Extractor asks Gemini to turn an intake transcript into client preferences.
type Extractor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewExtractor(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Extractor{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (e *Extractor) Extract(ctx context.Context, transcript string) (preferences.ClientPreferences, error) {
	if e == nil || e.generator == nil {
		return preferences.ClientPreferences{}, errors.New("gemini extractor is not initialized")
	}

	log := logger.WithProviderFields(e.logger, providerName, e.generator.Model())
	log.Debug("sending transcript to model",
		zap.Int("transcript_length", utf8.RuneCountInString(transcript)),
		zap.String("transcript_preview", utils.TruncateForLog(transcript, e.maxLogLen)),
	)

	response, err := e.generator.GenerateContent(ctx, ai.ExtractionPrompt(), transcript)
	if err != nil {
		return preferences.ClientPreferences{}, err
	}

	log.Debug("received model response",
		zap.Int("response_length", utf8.RuneCountInString(response)),
		zap.String("response_preview", utils.TruncateForLog(response, e.maxLogLen)),
	)

	return ai.ParseExtraction(response)
}

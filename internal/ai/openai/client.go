// Package openai transcribes intake calls with Whisper and extracts preferences with a chat model.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/ai"
	"github.com/spigell/placement-assistant/internal/logger"
	"github.com/spigell/placement-assistant/internal/preferences"
	"github.com/spigell/placement-assistant/internal/utils"
)

const (
	providerName = "openai"

	DefaultTranscriptionModel = "whisper-1"
	DefaultChatModel          = "gpt-4o-mini"
	DefaultTemperature        = 0.3

	defaultMaxLogLength = 200
)

// Options configures the OpenAI client. Zero values fall back to defaults.
type Options struct {
	TranscriptionModel string
	ChatModel          string
	// Temperature is left to DefaultTemperature when nil; zero is a valid setting.
	Temperature        *float64
	BaseURL            string
	MaxRetries         int
	MaxLogLength       int
}

// Client implements both ai.Transcriber and ai.Extractor.
type Client struct {
	client             *oai.Client
	transcriptionModel string
	chatModel          string
	temperature        float64
	logger             *zap.Logger
	maxLogLen          int
}

var (
	_ ai.Transcriber = (*Client)(nil)
	_ ai.Extractor   = (*Client)(nil)
)

func New(apiKey string, opts Options, log *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	requestOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(base))
	}
	if opts.MaxRetries > 0 {
		requestOpts = append(requestOpts, option.WithMaxRetries(opts.MaxRetries))
	}

	client := oai.NewClient(requestOpts...)

	c := &Client{
		client:             &client,
		transcriptionModel: strings.TrimSpace(opts.TranscriptionModel),
		chatModel:          strings.TrimSpace(opts.ChatModel),
		temperature:        DefaultTemperature,
		maxLogLen:          opts.MaxLogLength,
	}
	if c.transcriptionModel == "" {
		c.transcriptionModel = DefaultTranscriptionModel
	}
	if c.chatModel == "" {
		c.chatModel = DefaultChatModel
	}
	if opts.Temperature != nil {
		if t := *opts.Temperature; t < 0 || t > 2 {
			return nil, fmt.Errorf("openai temperature %v out of range [0, 2]", t)
		}
		c.temperature = *opts.Temperature
	}
	if c.maxLogLen <= 0 {
		c.maxLogLen = defaultMaxLogLength
	}
	c.logger = logger.WithProviderFields(log, providerName, c.chatModel)

	return c, nil
}

// Transcribe uploads audio to the transcription endpoint and returns the text.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if audio == nil {
		return "", errors.New("audio is required")
	}

	c.logger.Info("transcribing audio",
		zap.String("file", filename),
		zap.String("transcription_model", c.transcriptionModel),
	)

	resp, err := c.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		Model: oai.AudioModel(c.transcriptionModel),
		File:  oai.File(audio, filepath.Base(filename), contentType(filename)),
	})
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", filename, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", errors.New("openai returned an empty transcript")
	}

	c.logger.Debug("transcript received",
		zap.Int("transcript_length", utf8.RuneCountInString(text)),
		zap.String("transcript_preview", utils.TruncateForLog(text, c.maxLogLen)),
	)
	return text, nil
}

// Extract asks the chat model for the preference JSON and parses it.
func (c *Client) Extract(ctx context.Context, transcript string) (preferences.ClientPreferences, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return preferences.ClientPreferences{}, errors.New("transcript must not be empty")
	}

	params := oai.ChatCompletionNewParams{
		Model: oai.ChatModel(c.chatModel),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(ai.ExtractionPrompt()),
			oai.UserMessage(transcript),
		},
		Temperature: oai.Float(c.temperature),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return preferences.ClientPreferences{}, fmt.Errorf("extract preferences: %w", err)
	}
	if len(resp.Choices) == 0 {
		return preferences.ClientPreferences{}, errors.New("no choices in openai response")
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("extraction response received",
		zap.Int("response_length", utf8.RuneCountInString(content)),
		zap.String("response_preview", utils.TruncateForLog(content, c.maxLogLen)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)

	return ai.ParseExtraction(content)
}

func contentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".m4a" {
		return "audio/m4a"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

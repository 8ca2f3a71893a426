package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/ai"
	"github.com/spigell/placement-assistant/internal/ai/gemini"
	"github.com/spigell/placement-assistant/internal/ai/openai"
	"github.com/spigell/placement-assistant/internal/intake"
	"github.com/spigell/placement-assistant/internal/logger"
	"github.com/spigell/placement-assistant/internal/secrets"
)

const (
	providerOpenAI = "openai"
	providerGemini = "gemini"
)

var intakeCmd = &cobra.Command{
	Use:   "intake <recording.zip|audio|transcript.txt>",
	Short: "Transcribe an intake call and extract the client preferences",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runIntake(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(intakeCmd)

	intakeCmd.Flags().StringP("preferences", "p", "", "where to write the preferences JSON")
	intakeCmd.Flags().StringP("transcript", "t", "", "also write the transcript to this file")
	intakeCmd.Flags().String("provider", "", "extraction provider: openai or gemini")
	intakeCmd.Flags().BoolP("yes", "y", false, "overwrite an existing preferences file without asking")

	viper.BindPFlag("output.transcript", intakeCmd.Flags().Lookup("transcript"))
	viper.BindPFlag("ai.provider", intakeCmd.Flags().Lookup("provider"))
}

func runIntake(cmd *cobra.Command, input string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	output := config.Preferences
	if flag, _ := cmd.Flags().GetString("preferences"); flag != "" {
		output = flag
	}

	if autoApprove, _ := cmd.Flags().GetBool("yes"); !autoApprove {
		if err := confirmOverwrite(output); err != nil {
			logger.Info("exiting", zap.Error(err))
			return
		}
	}

	svc, err := newIntakeService(ctx, config.AI, needsTranscriber(input), logger)
	if err != nil {
		logger.Fatal("building intake collaborators", zap.Error(err))
	}

	result, err := svc.Run(ctx, input)
	if err != nil {
		logger.Fatal("intake failed", zap.Error(err))
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal("creating output directory", zap.Error(err))
		}
	}
	if err := intake.Save(result, output, config.Output.Transcript); err != nil {
		logger.Fatal("saving preferences", zap.Error(err))
	}

	logger.Info("preferences saved",
		zap.String("file", output),
		zap.String("source", result.Source),
		zap.Duration("duration", result.Duration),
	)
}

func needsTranscriber(input string) bool {
	return !strings.EqualFold(filepath.Ext(input), ".txt")
}

func newIntakeService(ctx context.Context, config AIConfig, withTranscriber bool, logger *zap.Logger) (*intake.Service, error) {
	provider := strings.TrimSpace(strings.ToLower(config.Provider))
	if provider == "" {
		provider = providerOpenAI
	}
	if provider != providerOpenAI && provider != providerGemini {
		return nil, fmt.Errorf("unsupported ai provider: %s", config.Provider)
	}

	svc := &intake.Service{Logger: logger}

	// Speech-to-text is always OpenAI; only extraction is switchable.
	if withTranscriber || provider == providerOpenAI {
		client, err := newOpenAIClient(config.OpenAI, logger)
		if err != nil {
			return nil, err
		}
		if withTranscriber {
			svc.Transcriber = client
		}
		if provider == providerOpenAI {
			svc.Extractor = client
		}
	}

	if provider == providerGemini {
		extractor, err := newGeminiExtractor(ctx, config.Gemini, logger)
		if err != nil {
			return nil, err
		}
		svc.Extractor = extractor
	}

	return svc, nil
}

func newOpenAIClient(config OpenAIConfig, logger *zap.Logger) (*openai.Client, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "openai api key",
		Value: config.APIKey,
		File:  config.APIKeyFile,
		Env:   "OPENAI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (or set ai.openai.api-key-file)", err)
	}

	return openai.New(apiKey, openai.Options{
		TranscriptionModel: config.TranscriptionModel,
		ChatModel:          config.Model,
		Temperature:        config.Temperature,
		BaseURL:            config.BaseURL,
		MaxLogLength:       config.MaxLogLength,
	}, logger)
}

func newGeminiExtractor(ctx context.Context, config GeminiConfig, logger *zap.Logger) (ai.Extractor, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.APIKey,
		File:  config.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (or set ai.gemini.api-key-file)", err)
	}

	genLogger := logger.With(zap.Int("ai_retry_attempts", config.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, apiKey, config.Model, config.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewExtractor(generator, logger, config.MaxLogLength), nil
}

func confirmOverwrite(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	confirm := promptui.Prompt{
		Label:     fmt.Sprintf("%s exists, overwrite", path),
		IsConfirm: true,
	}
	if _, err := confirm.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return errors.New("kept existing preferences file")
		}
		return err
	}
	return nil
}

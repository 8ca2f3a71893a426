package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/community"
	"github.com/spigell/placement-assistant/internal/export"
	"github.com/spigell/placement-assistant/internal/filtering"
	"github.com/spigell/placement-assistant/internal/geo"
	"github.com/spigell/placement-assistant/internal/geocode"
	"github.com/spigell/placement-assistant/internal/logger"
	"github.com/spigell/placement-assistant/internal/pipeline"
	"github.com/spigell/placement-assistant/internal/preferences"
	"github.com/spigell/placement-assistant/internal/ranking"
)

const (
	PromptShortlist = "Show shortlist"
	PromptReport    = "Show filter report"
	PromptExport    = "Export results to another directory"
	PromptExit      = "Exit"
)

var errExit = errors.New("exit requested")

var matchPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShortlist, PromptReport, PromptExport, PromptExit},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Filter and rank communities for a client and export the results",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("dataset", "i", "", "community dataset (.xlsx or .csv)")
	matchCmd.Flags().String("sheet", "", "worksheet to read from an .xlsx dataset (default is the first one)")
	matchCmd.Flags().StringP("preferences", "p", "", "client preferences JSON produced by the intake command")
	matchCmd.Flags().StringP("output-dir", "o", "", "directory for the exported CSV files")
	matchCmd.Flags().String("policy", "", "shortlist policy: priority-first or distance-first")
	matchCmd.Flags().IntP("top-n", "n", 0, "shortlist size")
	matchCmd.Flags().StringSlice("disable-filter", nil, "filters to skip (care_level, enhanced, enriched, move_in, budget)")
	matchCmd.Flags().Bool("no-geocode", false, "skip geographic ranking")
	matchCmd.Flags().BoolP("yes", "y", false, "do not ask what to do with the results")

	viper.BindPFlag("dataset", matchCmd.Flags().Lookup("dataset"))
	viper.BindPFlag("sheet", matchCmd.Flags().Lookup("sheet"))
	viper.BindPFlag("preferences", matchCmd.Flags().Lookup("preferences"))
	viper.BindPFlag("output.dir", matchCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("ranking.policy", matchCmd.Flags().Lookup("policy"))
	viper.BindPFlag("ranking.top-n", matchCmd.Flags().Lookup("top-n"))
	viper.BindPFlag("filters.disable", matchCmd.Flags().Lookup("disable-filter"))
}

func match(cmd *cobra.Command) {
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

	if noGeocode, _ := cmd.Flags().GetBool("no-geocode"); noGeocode {
		config.Geocoding.Enabled = false
	}

	logger.Info("starting the placement-assistant", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	run, err := runMatch(ctx, config, logger)
	if err != nil {
		logger.Fatal("matching failed", zap.Error(err))
	}

	paths, err := export.Results(config.Output.Dir, export.Paths{All: config.Output.AllFile, Top: config.Output.TopFile}, run.Result)
	if err != nil {
		logger.Fatal("exporting results", zap.Error(err))
	}
	logger.Info("results exported",
		zap.String("all", paths.All),
		zap.String("top", paths.Top),
		zap.Int("ranked", run.Result.Ranked.Len()),
		zap.Int("shortlist", run.Result.Shortlist.Len()),
	)

	if run.Result.Ranked.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no communities left after filters"))
		return
	}

	if autoApprove, _ := cmd.Flags().GetBool("yes"); autoApprove {
		printShortlist(os.Stdout, run.Result)
		return
	}

	for {
		_, action, err := matchPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleMatchAction(action, logger, config, run); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// runMatch loads both inputs and runs the pipeline.
func runMatch(ctx context.Context, config *Config, logger *zap.Logger) (*pipeline.Context, error) {
	if strings.TrimSpace(config.Dataset) == "" {
		return nil, errors.New("dataset is required (set --dataset or the 'dataset' key in the configuration file)")
	}

	prefs, err := preferences.Load(config.Preferences)
	if err != nil {
		return nil, err
	}
	logger.Info("client preferences loaded",
		zap.String("care_level", string(prefs.CareLevel)),
		zap.Strings("locations", prefs.Locations),
		zap.Int("max_budget", prefs.MaxBudget),
		zap.String("move_in_window", string(prefs.MoveIn)),
	)

	table, err := community.Load(config.Dataset, community.ReadOptions{Sheet: config.Sheet})
	if err != nil {
		return nil, err
	}
	logger.Info("communities loaded", zap.String("dataset", config.Dataset), zap.Int("count", table.Len()))

	policy, err := ranking.ParsePolicy(config.Ranking.Policy)
	if err != nil {
		return nil, err
	}

	p := &pipeline.Pipeline{
		Filters: prepareFilters(config.Filters, logger),
		Policy:  policy,
		TopN:    config.Ranking.TopN,
		Logger:  logger,
	}
	if config.Geocoding.Enabled {
		p.Locator = newLocator(config.Geocoding, logger)
	} else {
		logger.Info("geographic ranking disabled")
	}

	return p.Run(ctx, prefs, table)
}

func prepareFilters(config FiltersConfig, logger *zap.Logger) []filtering.Filter {
	steps := filtering.Default()
	for _, name := range config.Disable {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !filtering.DisableByName(steps, name, "disabled by configuration") {
			logger.Warn("unknown filter in configuration", zap.String("filter", name))
		}
	}
	return steps
}

func newLocator(config GeocodingConfig, logger *zap.Logger) *ranking.GeoRanker {
	nominatim := geocode.NewNominatim()
	if config.NominatimURL != "" {
		nominatim.BaseURL = config.NominatimURL
	}
	if config.UserAgent != "" {
		nominatim.UserAgent = config.UserAgent
	}
	nominatim.Email = config.Email

	directory := geocode.NewPostalDirectory()
	if config.PostalURL != "" {
		directory.BaseURL = config.PostalURL
	}
	if config.Country != "" {
		directory.Country = config.Country
	}
	if config.UserAgent != "" {
		directory.UserAgent = config.UserAgent
	}

	return &ranking.GeoRanker{
		Geocoder: geocode.NewAdapter(nominatim,
			geocode.WithMinInterval(config.MinInterval),
			geocode.WithTimeout(config.Timeout),
			geocode.WithLogger(logger.Named(nominatim.Name())),
		),
		Postal: geocode.NewAdapter(directory,
			geocode.WithMinInterval(config.MinInterval),
			geocode.WithTimeout(config.Timeout),
			geocode.WithLogger(logger.Named(directory.Name())),
		),
		Qualifier: config.Qualifier,
		Default:   geo.Coordinate{Lat: config.DefaultLocation.Lat, Lon: config.DefaultLocation.Lon},
		Logger:    logger,
	}
}

func handleMatchAction(action string, logger *zap.Logger, config *Config, run *pipeline.Context) error {
	switch action {
	case PromptShortlist:
		printShortlist(os.Stdout, run.Result)
		return nil
	case PromptReport:
		printFilterReport(os.Stdout, run.Filters)
		logger.Info("filter report", zap.Int("filters", len(run.Filters)), zap.Duration("duration", run.Duration))
		return nil
	case PromptExport:
		dirPrompt := promptui.Prompt{
			Label:   "Directory",
			Default: config.Output.Dir,
		}
		dir, err := dirPrompt.Run()
		if err != nil {
			return err
		}
		paths, err := export.Results(dir, export.Paths{All: config.Output.AllFile, Top: config.Output.TopFile}, run.Result)
		if err != nil {
			return fmt.Errorf("export results: %w", err)
		}
		logger.Info("results exported", zap.String("all", paths.All), zap.String("top", paths.Top))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func printShortlist(w io.Writer, result ranking.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tCommunity\tType of Service\tTown\tMonthly Fee\tPriority\tMiles\n")
	for i, r := range result.Shortlist.Records() {
		fee := "N/A"
		if r.HasFee {
			fee = fmt.Sprintf("$%.0f", r.MonthlyFee)
		}
		miles := "N/A"
		if r.HasDistance {
			miles = fmt.Sprintf("%.1f", r.Distance)
		}
		town := joinNonEmpty(", ", r.Town, r.State)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n", i+1, r.Label(), r.ServiceType, town, fee, r.Priority, miles)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d of %d communities shortlisted (%s)\n", result.Shortlist.Len(), result.Ranked.Len(), result.Policy)
}

func printFilterReport(w io.Writer, summaries []filtering.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Filter\tEnabled\tInitial\tDropped\tLeft\tNote\tDetails\n")
	for _, s := range summaries {
		counts := "-\t-\t-"
		if s.Ran {
			counts = fmt.Sprintf("%d\t%d\t%d", s.Step.Initial, s.Step.Dropped, s.Step.Left)
		}
		note := s.Step.Skipped
		if !s.Enabled {
			note = joinNonEmpty("", s.Reason)
			if note == "" {
				note = "disabled"
			}
		}
		if note == "" {
			note = "-"
		}
		details := formatDetails(s.Details)
		if details == "" {
			details = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Name, yesNo(s.Enabled), counts, note, details)
	}
	tw.Flush()
}

func formatDetails(details map[string]string) string {
	keys := make([]string, 0, len(details))
	for k, v := range details {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+details[k])
	}
	return strings.Join(parts, " ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// redacted hides inline API keys before the config is logged.
func redacted(config *Config) Config {
	c := *config
	if c.AI.OpenAI.APIKey != "" {
		c.AI.OpenAI.APIKey = "***"
	}
	if c.AI.Gemini.APIKey != "" {
		c.AI.Gemini.APIKey = "***"
	}
	return c
}

package cli

import (
	"context"
	"fmt"
	"slices"

	"tendermatch/internal/common"
	"tendermatch/internal/config"
	"tendermatch/internal/errors"
	"tendermatch/internal/formatters"
	"tendermatch/internal/observability"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}
type observabilityKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}
var observabilityKey = observabilityKeyType{}

var rootCmd = &cobra.Command{
	Use:   "tendermatch",
	Short: "Match consultant CVs against tender requirements",
	Long: `Tendermatch extracts structured requirements from a public-sector tender,
parses consultant CVs, scores each candidate deterministically and drafts the
validation, rejection and bid texts a bid manager needs.

An AI model can optionally assist with tender extraction and with the
justification of the top-ranked candidate. Without an API key every result
is produced by the deterministic pipeline.`,
	SilenceUsage: true,
}

// Execute runs the root command with the shared services attached to ctx
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger, om *observability.ObservabilityManager) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	ctx = context.WithValue(ctx, observabilityKey, om)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok && cfg != nil {
		return cfg, nil
	}
	return nil, errors.NewInternalError("CONTEXT_MISSING", "config not found in context", nil)
}

func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok && logger != nil {
		return logger, nil
	}
	return nil, errors.NewInternalError("CONTEXT_MISSING", "logger not found in context", nil)
}

// getObservabilityFromContext may return nil; the manager's methods are nil-safe
func getObservabilityFromContext(ctx context.Context) *observability.ObservabilityManager {
	om, _ := ctx.Value(observabilityKey).(*observability.ObservabilityManager)
	return om
}

// addOutputFlags registers the shared --output and --format flags
func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return supportedFormats(cfg), cobra.ShellCompDirectiveNoFileComp
	})
}

// prepareOutput applies configured defaults to cc and validates the format
func prepareOutput(cmd *cobra.Command, cc *common.CommandConfig) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	if cc.OutputFormat == "" {
		cc.OutputFormat = cfg.App.DefaultFormat
	}
	cc.MaxFileSize = cfg.App.MaxFileSize
	return common.ValidateOutputFormat(cc.OutputFormat, supportedFormats(cfg))
}

// supportedFormats is the configured list restricted to formats that have a formatter
func supportedFormats(cfg *config.Config) []string {
	available := formatters.GlobalRegistry.GetSupportedFormats()
	if len(cfg.App.SupportedFormats) == 0 {
		return available
	}
	var formats []string
	for _, f := range cfg.App.SupportedFormats {
		if slices.Contains(available, f) {
			formats = append(formats, f)
		}
	}
	return formats
}

// commandServices bundles what every analysis command needs
type commandServices struct {
	cfg     *config.Config
	logger  *errors.Logger
	om      *observability.ObservabilityManager
	factory *engineFactory
}

func loadCommandServices(cmd *cobra.Command) (*commandServices, error) {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}
	om := getObservabilityFromContext(cmd.Context())
	return &commandServices{
		cfg:     cfg,
		logger:  logger,
		om:      om,
		factory: newEngineFactory(cfg, logger, om),
	}, nil
}

func wrapCommandError(action string, err error) error {
	return fmt.Errorf("failed to %s: %w", action, err)
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

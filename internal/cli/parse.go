package cli

import (
	"context"
	"fmt"

	"tendermatch/internal/common"

	"github.com/spf13/cobra"
)

const (
	parseKindTender    = "tender"
	parseKindCandidate = "candidate"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Show the structured record parsed from a tender or a CV",
	Long: `Run only the deterministic parser on a document and print the result.
Useful for checking how a tender's headings or a CV's sections are read.

Use --kind tender (default) or --kind candidate.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if parseKind != parseKindTender && parseKind != parseKindCandidate {
			return fmt.Errorf("unsupported kind '%s'. Supported kinds: %s, %s",
				parseKind, parseKindTender, parseKindCandidate)
		}
		return prepareOutput(cmd, &parseConfig)
	},
	RunE: runParse,
}

var (
	parseConfig common.CommandConfig
	parseKind   string
)

func init() {
	addOutputFlags(parseCmd, &parseConfig)
	parseCmd.Flags().StringVar(&parseKind, "kind", parseKindTender, "Document kind: tender or candidate")

	_ = parseCmd.RegisterFlagCompletionFunc("kind", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{parseKindTender, parseKindCandidate}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	// parsing is deterministic, so no AI collaborators are created
	factory := &engineFactory{cfg: cfg, logger: logger}
	orch, err := factory.Build(nil)
	if err != nil {
		return err
	}

	parse := func(ctx context.Context, files []common.InputFile) (any, error) {
		f := files[0]
		if parseKind == parseKindCandidate {
			return orch.ParseCandidate(f.Content, f.Name()), nil
		}
		return orch.ParseTender(f.Content), nil
	}

	if err := common.RunCommand(cmd.Context(), logger, parseConfig, args, parse); err != nil {
		return wrapCommandError("parse "+parseKind, err)
	}
	return nil
}

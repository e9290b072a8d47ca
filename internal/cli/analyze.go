package cli

import (
	"context"

	"tendermatch/internal/common"
	"tendermatch/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [tender-file] [cv-file]",
	Short: "Analyze one CV against a tender",
	Long: `Analyze a single consultant CV against a tender document.

The report includes:
- The tender requirements (role, skills, experience, sector, certifications)
- The parsed candidate profile
- Matched and missing skills, experience, sector and certification verdicts
- A 0-100 score and a suitability status
- A validation paragraph, a rejection email when not suitable, and a bid draft`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return prepareOutput(cmd, &analyzeConfig)
	},
	RunE: runAnalyze,
}

var analyzeConfig common.CommandConfig

func init() {
	addOutputFlags(analyzeCmd, &analyzeConfig)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	svc, err := loadCommandServices(cmd)
	if err != nil {
		return err
	}
	defer svc.factory.Close()

	orch, err := svc.factory.Build(nil)
	if err != nil {
		return err
	}
	metrics := svc.om.GetMetrics()

	analyze := func(ctx context.Context, files []common.InputFile) (*types.AnalysisReport, error) {
		tender, cv := files[0], files[1]
		svc.logger.Info("Starting tender analysis",
			"tender_chars", len(tender.Content),
			"cv_file", cv.Name(),
			"output_format", analyzeConfig.OutputFormat)

		metrics.RecordContentSize(ctx, "tender", len(tender.Content))
		metrics.RecordContentSize(ctx, "cv", len(cv.Content))

		report, err := orch.Analyze(ctx, tender.Content, cv.Content, cv.Name())
		if err != nil {
			metrics.RecordAnalysis(ctx, "analyze", false, false)
			return nil, err
		}
		metrics.RecordAnalysis(ctx, "analyze", true, report.AIExtractionUsed)
		metrics.RecordCandidateScores(ctx, []int{report.Score})
		return report, nil
	}

	if err := common.RunCommand(cmd.Context(), svc.logger, analyzeConfig, args, analyze); err != nil {
		return wrapCommandError("analyze tender", err)
	}
	svc.logger.Info("Tender analysis completed successfully")
	return nil
}

package cli

import (
	"context"

	"tendermatch/internal/analysis"
	"tendermatch/internal/common"
	"tendermatch/internal/types"

	"github.com/spf13/cobra"
)

var rankCmd = &cobra.Command{
	Use:   "rank [tender-file] [cv-file...]",
	Short: "Rank several CVs against a tender",
	Long: `Rank one or more consultant CVs against a tender document.

Candidates are ordered by score; equal scores keep the order in which the
files were given. Every candidate gets a full report, and the top-ranked
candidate gets a justification paragraph (AI-written when available).`,
	Args: cobra.MinimumNArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return prepareOutput(cmd, &rankConfig)
	},
	RunE: runRank,
}

var rankConfig common.CommandConfig

func init() {
	addOutputFlags(rankCmd, &rankConfig)
}

func runRank(cmd *cobra.Command, args []string) error {
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

	rank := func(ctx context.Context, files []common.InputFile) (*types.RankingReport, error) {
		session := &analysis.Session{TenderText: files[0].Content}
		metrics.RecordContentSize(ctx, "tender", len(files[0].Content))
		for _, f := range files[1:] {
			metrics.RecordContentSize(ctx, "cv", len(f.Content))
			session.Candidates = append(session.Candidates, types.Document{Filename: f.Name(), Text: f.Content})
		}

		svc.logger.Info("Starting candidate ranking",
			"candidates", len(session.Candidates),
			"output_format", rankConfig.OutputFormat)

		report, err := orch.Rank(ctx, session)
		if err != nil {
			metrics.RecordAnalysis(ctx, "rank", false, false)
			return nil, err
		}

		scores := make([]int, len(report.Candidates))
		for i, c := range report.Candidates {
			scores[i] = c.Score
		}
		metrics.RecordAnalysis(ctx, "rank", true, report.AIExtractionUsed || report.AIJustificationUsed)
		metrics.RecordCandidateScores(ctx, scores)
		return report, nil
	}

	if err := common.RunCommand(cmd.Context(), svc.logger, rankConfig, args, rank); err != nil {
		return wrapCommandError("rank candidates", err)
	}
	svc.logger.Info("Candidate ranking completed successfully")
	return nil
}

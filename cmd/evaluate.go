package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/core/evaluation"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/log"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/storage/postgres/reportctrl"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compare classifier output with annotated ground truth",
	Long: `Reads two JSON-lines inputs: the classifier output (doc_id, accepted,
borderline, rejected and optionally entities/negative_probs/labels) and the
ground truth (doc_id, correct_<type>, annotated_<type>). Inputs may be local
paths or s3:// locations.

Prints per-document agreement counts, corpus precision and recall and, with
--ranking, the mean reciprocal rank of the correct entities next to a random
baseline.`,
	RunE: Evaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringP("classified", "c", "", "Classifier output JSON lines path")
	evaluateCmd.MarkFlagRequired("classified")
	evaluateCmd.Flags().StringP("ground-truth", "g", "", "Ground truth JSON lines path")
	evaluateCmd.MarkFlagRequired("ground-truth")
	evaluateCmd.Flags().StringP("type", "t", "", "Entity type, e.g. cities, ethnicity, eye-color")
	evaluateCmd.Flags().Bool("ranking", false, "Compute MRR from candidate scores")
	evaluateCmd.Flags().String("join", "id", "How to pair records: id or position")
	evaluateCmd.Flags().Uint64("seed", 0, "Seed for the random ranking baseline")
	evaluateCmd.Flags().Bool("json", false, "Print the report as JSON")
	evaluateCmd.Flags().Bool("progress", true, "Show a progress spinner on stderr")
	evaluateCmd.Flags().Bool("store", false, "Save the report to PostgreSQL")

	viper.BindPFlag("evaluate.type", evaluateCmd.Flags().Lookup("type"))
	viper.BindPFlag("evaluate.ranking", evaluateCmd.Flags().Lookup("ranking"))
	viper.BindPFlag("evaluate.join", evaluateCmd.Flags().Lookup("join"))
	viper.BindPFlag("evaluate.seed", evaluateCmd.Flags().Lookup("seed"))
}

func Evaluate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	classifiedPath, _ := cmd.Flags().GetString("classified")
	groundTruthPath, _ := cmd.Flags().GetString("ground-truth")
	asJSON, _ := cmd.Flags().GetBool("json")
	showProgress, _ := cmd.Flags().GetBool("progress")
	store, _ := cmd.Flags().GetBool("store")

	join, err := evaluation.ParseJoin(viper.GetString("evaluate.join"))
	if err != nil {
		return err
	}
	opts := evaluation.Options{
		Type:    viper.GetString("evaluate.type"),
		Ranking: viper.GetBool("evaluate.ranking"),
		Join:    join,
	}
	if viper.IsSet("evaluate.seed") {
		seed := viper.GetUint64("evaluate.seed")
		opts.Seed = &seed
	}

	minioService, err := newMinioService()
	if err != nil {
		return err
	}
	sources := newSourceRouter(minioService)

	classified, err := sources.Open(ctx, classifiedPath)
	if err != nil {
		return fmt.Errorf("failed to open classifier output: %w", err)
	}
	defer classified.Close()

	groundTruth, err := sources.Open(ctx, groundTruthPath)
	if err != nil {
		return fmt.Errorf("failed to open ground truth: %w", err)
	}
	defer groundTruth.Close()

	if showProgress {
		bar := progressbar.Default(-1, "evaluating documents")
		defer bar.Finish()
		opts.OnDocument = func(evaluation.DocumentResult) {
			bar.Add(1)
		}
	}

	log.Info("Starting evaluation", "type", opts.Type, "join", opts.Join, "ranking", opts.Ranking,
		"classified", classifiedPath, "ground_truth", groundTruthPath)

	report, err := evaluation.Run(ctx, classified, groundTruth, opts)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	if store {
		if err := saveReport(ctx, report); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	if len(report.Documents) == 0 {
		fmt.Fprintln(out, "No documents were evaluated")
	}
	return evaluation.WriteSummary(out, report)
}

func saveReport(ctx context.Context, report *evaluation.Report) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %v", err)
	}
	defer sqlDB.Close()

	reports, err := reportctrl.NewReportService(db)
	if err != nil {
		return err
	}
	if err := reports.Migrate(ctx); err != nil {
		return err
	}
	row, err := reports.Save(ctx, report)
	if err != nil {
		return err
	}

	log.Info("Saved evaluation report", "report_id", row.ID, "run_id", report.RunID)
	return nil
}

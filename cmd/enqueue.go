package cmd

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	jobctrl "github.com/usc-isi-i2/dig-train-extractions-classifier/src/infrastructure/job"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/log"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue an evaluation for the worker",
	RunE:  runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)
	enqueueCmd.Flags().String("classified-url", "", "Classifier output location (path or s3://bucket/key)")
	enqueueCmd.MarkFlagRequired("classified-url")
	enqueueCmd.Flags().String("ground-truth-url", "", "Ground truth location (path or s3://bucket/key)")
	enqueueCmd.MarkFlagRequired("ground-truth-url")
	enqueueCmd.Flags().StringP("type", "t", "", "Entity type, e.g. cities")
	enqueueCmd.MarkFlagRequired("type")
	enqueueCmd.Flags().Bool("ranking", false, "Compute MRR from candidate scores")
	enqueueCmd.Flags().String("join", "id", "How to pair records: id or position")
	enqueueCmd.Flags().Uint64("seed", 0, "Seed for the random ranking baseline")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	payload := jobctrl.EvaluationPayload{}
	payload.ClassifiedURL, _ = cmd.Flags().GetString("classified-url")
	payload.GroundTruthURL, _ = cmd.Flags().GetString("ground-truth-url")
	payload.Type, _ = cmd.Flags().GetString("type")
	payload.Ranking, _ = cmd.Flags().GetBool("ranking")
	payload.Join, _ = cmd.Flags().GetString("join")
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint64("seed")
		payload.Seed = &seed
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %v", err)
	}
	defer sqlDB.Close()

	publisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}
	defer publisher.Close()

	jobRepo := jobctrl.NewPostgresJobRepository(db)
	if err := jobRepo.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("failed to migrate jobs: %w", err)
	}
	jobService := jobctrl.NewJobService(publisher, jobRepo, watermill.NewStdLogger(false, false), nil)

	job, err := jobService.EnqueueEvaluation(cmd.Context(), payload)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	log.Info("Enqueued evaluation", "job_id", job.ID, "type", payload.Type)
	fmt.Fprintf(cmd.OutOrStdout(), "Successfully enqueued job with ID: %d\n", job.ID)
	return nil
}

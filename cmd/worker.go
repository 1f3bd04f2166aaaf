package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	jobctrl "github.com/usc-isi-i2/dig-train-extractions-classifier/src/infrastructure/job"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/log"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/storage/postgres/reportctrl"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background evaluation worker",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	logger := watermill.NewStdLogger(viper.GetString("log.level") == "debug", false)

	db, err := openDatabase()
	if err != nil {
		return err
	}

	// Get underlying *sql.DB for cleanup
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %v", err)
	}
	defer sqlDB.Close()

	// Initialize AMQP publisher
	amqpPublisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		logger,
	)
	if err != nil {
		return err
	}
	defer amqpPublisher.Close()

	// Initialize AMQP subscriber
	subscriberConfig := amqp.NewDurableQueueConfig(viper.GetString("amqp.url"))
	subscriberConfig.Consume.NoRequeueOnNack = true
	amqpSubscriber, err := amqp.NewSubscriber(subscriberConfig, logger)
	if err != nil {
		return err
	}
	defer amqpSubscriber.Close()

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return err
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: time.Second,
			Logger:          logger,
		}.Middleware,
	)

	minioService, err := newMinioService()
	if err != nil {
		return fmt.Errorf("failed to initialize minio service: %v", err)
	}

	reportService, err := reportctrl.NewReportService(db)
	if err != nil {
		return fmt.Errorf("failed to initialize report service: %v", err)
	}
	if err := reportService.Migrate(cmd.Context()); err != nil {
		return err
	}

	jobRepo := jobctrl.NewPostgresJobRepository(db)
	if err := jobRepo.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("failed to migrate jobs: %v", err)
	}

	var archive jobctrl.ReportArchive
	bucket := viper.GetString("report.archive_bucket")
	if bucket != "" {
		if err := minioService.EnsureBucketExists(cmd.Context(), bucket); err != nil {
			return err
		}
		archive = minioService
	}

	evaluationTask := jobctrl.NewEvaluationTask(newSourceRouter(minioService), reportService, archive, bucket)
	jobService := jobctrl.NewJobService(amqpPublisher, jobRepo, logger, evaluationTask)

	router.AddNoPublisherHandler(
		"evaluation_processor",
		jobctrl.JobsTopic,
		amqpSubscriber,
		func(msg *message.Message) error {
			return jobService.ProcessJobMessage(msg)
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Run(ctx)
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-c:
	}

	log.Info("Shutting down worker...")
	cancel()
	<-router.Running()
	log.Info("Router stopped")

	return nil
}

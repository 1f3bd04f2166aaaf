package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	httpHdlr "github.com/usc-isi-i2/dig-train-extractions-classifier/handler/http"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/log"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/storage/postgres/reportctrl"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the evaluation API server",
	Long:  `The serve command starts an HTTP server that evaluates posted classifier output against ground truth.`,
	RunE:  RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer(cmd *cobra.Command, args []string) error {
	var reports httpHdlr.ReportRepository
	if storeReports() {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		reportService, err := reportctrl.NewReportService(db)
		if err != nil {
			return err
		}
		if err := reportService.Migrate(cmd.Context()); err != nil {
			return err
		}
		reports = reportService
	}

	// Setup gin router
	r := gin.Default()
	httpHdlr.NewHandler(reports).RegisterRoutes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", srv.Addr, "store_reports", reports != nil)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Info("Shutting down server...")

	// Parse shutdown timeout
	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server exited")
	return nil
}

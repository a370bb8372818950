package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/CS-UWC/OralSmart-sub001/pkg/artifact"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/database"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/kafka"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/logger"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/models"
	"github.com/CS-UWC/OralSmart-sub001/pkg/gateway/middleware"
	"github.com/CS-UWC/OralSmart-sub001/pkg/observability/metrics"
	"github.com/CS-UWC/OralSmart-sub001/pkg/training"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the training job API (the default command)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd)
	},
}

func runServer(cmd *cobra.Command) error {
	cfg := loadConfig(cmd)
	calc, err := calculator(cfg)
	if err != nil {
		return err
	}
	store, err := artifact.NewStore(cfg.ArtifactDir)
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}

	var repo training.JobStore = training.NewMemoryRepository()
	if cfg.EnablePostgres {
		db, err := database.GetPostgres(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer database.ClosePostgres()
		pg := training.NewRepository(db)
		if err := pg.AutoMigrate(); err != nil {
			return fmt.Errorf("migrate training tables: %w", err)
		}
		repo = pg
	}

	opts := []training.Option{training.WithDatasetDir(cfg.DatasetDir)}
	if cfg.EnableKafka {
		producer := kafka.NewProducer(cfg, models.TopicModelPublished)
		defer producer.Close()
		opts = append(opts, training.WithPublisher(producer))
	}

	service := training.NewService(repo, store, calc, pipelineDefaults(cfg), cfg.TrainingMaxWorkers, opts...)
	defer service.Close()

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging)
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)
	training.NewHandler(service, cfg.MaxRequestBody).Register(router)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.ServerHost, cfg.TrainingPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":      cfg.ServerHost,
			"port":      cfg.TrainingPort,
			"artifacts": store.Dir(),
		}).Info("Training Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("start server: %w", err)
	}

	logger.Log.Info("Shutting down Training Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Training Service stopped")
	return nil
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

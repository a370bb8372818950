package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/CS-UWC/OralSmart-sub001/pkg/artifact"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/config"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/database"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/kafka"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/logger"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/models"
	"github.com/CS-UWC/OralSmart-sub001/pkg/gateway/middleware"
	"github.com/CS-UWC/OralSmart-sub001/pkg/observability/metrics"
	"github.com/CS-UWC/OralSmart-sub001/pkg/risk"
	"github.com/CS-UWC/OralSmart-sub001/pkg/serving"
	"github.com/CS-UWC/OralSmart-sub001/pkg/serving/predictor"
	"github.com/CS-UWC/OralSmart-sub001/pkg/storage"
)

func main() {
	logger.Init()
	cfg := config.Load()

	calibration := risk.DefaultCalibration()
	if cfg.CalibrationFile != "" {
		loaded, err := risk.LoadCalibration(cfg.CalibrationFile)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to load calibration")
		}
		calibration = loaded
	}

	store, err := artifact.NewStore(cfg.ArtifactDir)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to open artifact store")
	}

	engine := predictor.New(store, risk.NewCalculator(calibration), cfg.PredictionTopFactors)
	engine.Reload()

	var opts []serving.Option
	if cfg.EnableRedis {
		opts = append(opts, serving.WithCache(storage.NewFeatureStore(database.GetRedis(cfg), cfg.FeatureCacheTTL)))
		defer database.CloseRedis()
	} else {
		opts = append(opts, serving.WithCache(storage.NewMemoryStore(cfg.FeatureCacheTTL)))
	}
	if cfg.EnablePostgres {
		db, err := database.GetPostgres(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to connect to database")
		}
		repo := serving.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("Failed to migrate prediction log tables")
		}
		opts = append(opts, serving.WithLogs(repo))
		defer database.ClosePostgres()
	}
	if cfg.EnableKafka {
		producer := kafka.NewProducer(cfg, models.TopicRiskAssessed)
		defer producer.Close()
		opts = append(opts, serving.WithPublisher(producer))
	}

	service := serving.NewService(engine, opts...)

	consumeCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	if cfg.EnableKafka {
		consumer := kafka.NewConsumer(cfg, models.TopicModelPublished, cfg.KafkaGroupID+"-serving")
		defer consumer.Close()
		go func() {
			if err := consumer.Consume(consumeCtx, service.HandleModelEvent); err != nil && !errors.Is(err, context.Canceled) {
				logger.Log.WithError(err).Error("Model event consumer stopped")
			}
		}()
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging)
	router.HandleFunc("/health", healthCheck(engine)).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)
	serving.NewHTTPHandler(service, cfg.MaxRequestBody).Register(router)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.ServerHost, cfg.ServingPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServingPort,
			"mode": engine.Status().Mode,
		}).Info("Serving Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Serving Service...")
	stopConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Serving Service stopped")
}

func healthCheck(engine *predictor.Predictor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","mode":"` + string(engine.Status().Mode) + `"}`))
	}
}

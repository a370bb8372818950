package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/CS-UWC/OralSmart-sub001/pkg/common/config"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/logger"
	"github.com/CS-UWC/OralSmart-sub001/pkg/gateway/httpclient"
	"github.com/CS-UWC/OralSmart-sub001/pkg/gateway/middleware"
	"github.com/CS-UWC/OralSmart-sub001/pkg/gateway/routes"
)

func main() {
	logger.Init()
	cfg := config.Load()

	client := httpclient.New(cfg.GatewayRequestTimeout)

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods("GET")

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	routes.RegisterRiskRoutes(apiRouter, routes.NewProxy("serving", cfg.ServingBaseURL, client,
		cfg.GatewayRequestTimeout, cfg.GatewayRetries, cfg.MaxRequestBody))
	routes.RegisterTrainingRoutes(apiRouter, routes.NewProxy("training", cfg.TrainingBaseURL, client,
		cfg.GatewayRequestTimeout, cfg.GatewayRetries, cfg.MaxRequestBody))

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.ServerHost, cfg.GatewayPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":     cfg.ServerHost,
			"port":     cfg.GatewayPort,
			"serving":  cfg.ServingBaseURL,
			"training": cfg.TrainingBaseURL,
		}).Info("API Gateway started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down API Gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("API Gateway stopped")
}

package main

import (
	"log"
	"net/http"

	"example.com/policy-portal/internal/config"
	"example.com/policy-portal/internal/eval"
	"example.com/policy-portal/internal/httpapi"
	"example.com/policy-portal/internal/lifecycle"
	"example.com/policy-portal/internal/logging"
	"example.com/policy-portal/internal/metrics"
	"example.com/policy-portal/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.RequireSecret(); err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	st := store.New(db)

	reg := prometheus.NewRegistry()
	svc := lifecycle.NewService(st, logger, metrics.New(reg))

	eng, err := eval.NewEngine(st)
	if err != nil {
		logger.Fatal("evaluation engine", zap.Error(err))
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Policies: &httpapi.PolicyHandler{Service: svc},
		Eval:     &httpapi.EvalHandler{Engine: eng},
		Auth:     httpapi.NewAuthenticator(cfg.SecretKey),
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:   logger,
	})

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

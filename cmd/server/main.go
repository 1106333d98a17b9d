package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/atmx/pricing-engine/internal/metrics"
	"github.com/atmx/pricing-engine/internal/pricing"
	"github.com/atmx/pricing-engine/internal/quote"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Local development keeps its settings in .env; deployed environments
	// inject real env vars.
	if os.Getenv("PORT") == "" {
		godotenv.Load()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Simulation configuration ---
	cfg := pricing.Config{
		RiskFreeRate: envFloat("RISK_FREE_RATE", 0.05),
		Simulations:  envInt("DEFAULT_SIMULATIONS", 10000),
		Workers:      envInt("MC_WORKERS", runtime.GOMAXPROCS(0)),
	}
	slog.Info("simulation config",
		"risk_free_rate", cfg.RiskFreeRate,
		"simulations", cfg.Simulations,
		"workers", cfg.Workers,
	)

	// --- Quote service ---
	quoteSvc := quote.NewService(cfg)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for dashboard cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"pricing-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Pricing.
		r.Post("/price", quoteSvc.PriceOption)

		// Contract parsing.
		r.Get("/contracts/{ticker}", quoteSvc.GetContract)

		// Risk statistics.
		r.Post("/risk/volatility", quoteSvc.Volatility)
		r.Post("/risk/breakeven", quoteSvc.BreakEven)
		r.Post("/risk/profitloss", quoteSvc.ProfitLoss)
		r.Post("/risk/probability", quoteSvc.Probability)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("pricing-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down pricing-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("pricing-engine stopped")
}

// envFloat reads a float env var, falling back to def when unset or malformed.
func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		slog.Warn("ignoring malformed env var", "key", key, "value", v)
	}
	return def
}

// envInt reads an int env var, falling back to def when unset or malformed.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("ignoring malformed env var", "key", key, "value", v)
	}
	return def
}

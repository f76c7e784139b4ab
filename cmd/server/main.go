package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/liamcoop/cardiorisk/config"
	"github.com/liamcoop/cardiorisk/internal/logger"
	"github.com/liamcoop/cardiorisk/predictor"
	"github.com/liamcoop/cardiorisk/rules"
)

type Server struct {
	cfg    *config.Config
	db     *sql.DB // nil when rules are kept in memory
	bridge *predictor.Bridge
	engine *rules.Engine
	router *chi.Mux
}

// NewServer wires the predictor bridge from cfg. With a nil db the
// recommendation rules live in memory. Either store starts from the default
// set when empty.
func NewServer(cfg *config.Config, db *sql.DB) (*Server, error) {
	p := cfg.Predictor
	artifacts := predictor.Artifacts{
		Model:        p.ModelPath,
		Scaler:       p.ScalerPath,
		FeatureNames: p.FeatureNamesPath,
	}
	bridge := predictor.NewBridge(artifacts, predictor.Commands(p.Interpreters, p.Script, p.WorkDir, p.Timeout))

	return newServer(cfg, db, bridge)
}

func newServer(cfg *config.Config, db *sql.DB, bridge *predictor.Bridge) (*Server, error) {
	var store rules.RuleStore
	if db != nil {
		store = rules.NewPostgresRuleStore(db)
	} else {
		store = rules.NewInMemoryRuleStore()
	}

	added, err := seedRules(store)
	if err != nil {
		return nil, fmt.Errorf("failed to seed rules: %w", err)
	}
	logger.Info("Recommendation rules ready", "persistent", db != nil, "seeded", added)

	engine, err := rules.NewEngine(store)
	if err != nil {
		return nil, fmt.Errorf("failed to create rules engine: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		db:     db,
		bridge: bridge,
		engine: engine,
	}

	s.setupRoutes()

	return s, nil
}

// seedRules loads the default rule set into an empty store. A store that
// already holds rules is left alone, so deleted defaults stay deleted.
func seedRules(store rules.RuleStore) (int, error) {
	existing, err := store.List()
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	return rules.Seed(store, rules.DefaultRules())
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/artifacts", s.handleArtifacts)
		r.Get("/metrics", s.handleMetrics)

		r.Post("/predict", s.handlePredict)
		r.Post("/score", s.handleScore)
		r.Post("/assess", s.handleAssess)

		r.Route("/recommendations/rules", func(r chi.Router) {
			r.Get("/", s.handleListRules)
			r.Post("/", s.handleCreateRule)
			r.Get("/{ruleId}", s.handleGetRule)
			r.Put("/{ruleId}", s.handleUpdateRule)
			r.Delete("/{ruleId}", s.handleDeleteRule)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// observe feeds the logger's HTTP counters.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		switch {
		case status >= 500:
			logger.ErrorHttp5xx()
		case status >= 400:
			logger.WarnHttp4xx(status)
		}

		elapsed := time.Since(start)
		if slow := s.cfg.Server.SlowRequest; slow > 0 && elapsed > slow {
			logger.WarnSlowRequest()
			logger.Warn("Slow request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", elapsed.Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()))
		}
	})
}

func openDB(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Fatal("Invalid log level", "level", cfg.Log.Level, "error", err)
	}
	logger.SetLevel(level)

	var db *sql.DB
	if cfg.Database.URL != "" {
		db, err = openDB(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
		}
		defer db.Close()
	}

	server, err := NewServer(cfg, db)
	if err != nil {
		logger.Fatal("Failed to create server", "error", err)
	}

	status := server.bridge.Artifacts().Check()
	logger.Info("Model artifacts probed",
		"model", status.Model,
		"scaler", status.Scaler,
		"feature_names", status.FeatureNames,
		"external_predictor", status.Ready())

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if err := logger.Shutdown(ctx); err != nil {
		logger.Error("Logger shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}

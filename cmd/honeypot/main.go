package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/karanvs/scambait/internal/api"
	"github.com/karanvs/scambait/internal/classifier"
	"github.com/karanvs/scambait/internal/config"
	"github.com/karanvs/scambait/internal/engage"
	"github.com/karanvs/scambait/internal/escalate"
	"github.com/karanvs/scambait/internal/honeypot"
	"github.com/karanvs/scambait/internal/intel"
	"github.com/karanvs/scambait/internal/llm"
	"github.com/karanvs/scambait/internal/ratelimit"
	"github.com/karanvs/scambait/internal/server"
	"github.com/karanvs/scambait/internal/session"
	"github.com/karanvs/scambait/internal/session/sqlite"
	"github.com/karanvs/scambait/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("scambait-honeypot", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store := session.NewStore()

	// LLM-backed classification and reply generation degrade to keyword
	// scoring and canned prompts when no API key is configured.
	var backend *llm.Client
	if cfg.LLM.APIKey != "" {
		llmOpts := []llm.ClientOption{}
		if cfg.LLM.BaseURL != "" {
			llmOpts = append(llmOpts, llm.WithBaseURL(cfg.LLM.BaseURL))
		}
		if cfg.LLM.Model != "" {
			llmOpts = append(llmOpts, llm.WithModel(cfg.LLM.Model))
		}
		if cfg.LLM.TimeoutSeconds > 0 {
			llmOpts = append(llmOpts, llm.WithTimeout(time.Duration(cfg.LLM.TimeoutSeconds)*time.Second))
		}
		backend = llm.NewClient(cfg.LLM.APIKey, llmOpts...)
		logger.Info("LLM backend configured", slog.String("model", cfg.LLM.Model))
	} else {
		logger.Warn("no LLM API key configured, running in keyword-only mode")
	}

	var clsOpts []classifier.Option
	var agentOpts []engage.Option
	if backend != nil {
		clsOpts = append(clsOpts, classifier.WithBackend(backend))
		agentOpts = append(agentOpts, engage.WithBackend(backend))
	}
	cls := classifier.New(logger, clsOpts...)
	agent := engage.New(logger, agentOpts...)

	var sender escalate.Sender
	if cfg.Collector.URL != "" {
		sender = escalate.NewReporter(cfg.Collector.URL,
			escalate.WithAPIKey(cfg.Collector.APIKey))
		logger.Info("collector configured", slog.String("url", cfg.Collector.URL))
	} else {
		logger.Warn("no collector URL configured, reports will be logged only")
	}
	policy := escalate.NewPolicy(cfg.Engagement.Threshold, sender, logger)

	pipeline := honeypot.New(store, cls, intel.New(), agent, policy, logger)

	limiter := ratelimit.New(ratelimit.Config{
		PerMinute: cfg.RateLimit.PerMinute,
		PerDay:    cfg.RateLimit.PerDay,
		FailOpen:  cfg.RateLimit.FailOpen,
	})

	// Idle-session archiving to sqlite is optional.
	var stopSweeper func()
	if cfg.Session.TTLMinutes > 0 {
		var archiver session.Archiver
		if cfg.Session.ArchivePath != "" {
			archive, err := sqlite.New(cfg.Session.ArchivePath)
			if err != nil {
				log.Fatalf("Failed to open session archive: %v", err)
			}
			defer archive.Close()
			archiver = archive
		}
		sweeper := session.NewSweeper(store, session.SweeperConfig{
			TTL:      time.Duration(cfg.Session.TTLMinutes) * time.Minute,
			Archiver: archiver,
		}, logger)
		if sweeper != nil {
			stop, err := sweeper.Start()
			if err != nil {
				log.Fatalf("Failed to start session sweeper: %v", err)
			}
			stopSweeper = stop
		}
	}

	srv := server.New(cfg.Server.Port, logger, cfg.Server.APIKey)
	handler := api.NewHandler(pipeline, limiter, logger)
	handler.Routes(srv.Router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("honeypot started",
		slog.Int("port", cfg.Server.Port),
		slog.Int("engagement_threshold", cfg.Engagement.Threshold))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	case <-sigChan:
	}

	logger.Info("shutdown signal received, stopping honeypot")

	if stopSweeper != nil {
		stopSweeper()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("honeypot shutdown complete")
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/RajkumarR2006/gemarag"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// Load a local .env if present; real environment wins.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	cfg := gemarag.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			slog.Error("opening config", "error", err)
			os.Exit(1)
		}
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			f.Close()
			slog.Error("parsing config", "error", err)
			os.Exit(1)
		}
		f.Close()
	}
	applyEnv(&cfg)

	apiKey := os.Getenv("GEMARAG_API_KEY")
	corsOrigins := os.Getenv("GEMARAG_CORS_ORIGINS")

	engine, err := gemarag.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	h := newHandler(engine)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/query", h.handleQuery)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/graph/stats", h.handleGraphStats)

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = mux
	handler = requestLogger(handler)
	handler = requireAPIKey(apiKey, handler)
	handler = allowCORS(corsOrigins, handler)
	handler = recoverPanics(handler)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute, // LLM generation can be slow
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

// applyEnv overrides config fields from GEMARAG_* environment variables.
func applyEnv(cfg *gemarag.Config) {
	if v := os.Getenv("GEMARAG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("GEMARAG_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("GEMARAG_GRAPH_PATH"); v != "" {
		cfg.GraphPath = v
	}
	if v := os.Getenv("GEMARAG_FACTS_PATH"); v != "" {
		cfg.FactsPath = v
	}
	if v := os.Getenv("GEMARAG_CHAT_PROVIDER"); v != "" {
		cfg.Chat.Provider = v
	}
	if v := os.Getenv("GEMARAG_CHAT_MODEL"); v != "" {
		cfg.Chat.Model = v
	}
	if v := os.Getenv("GEMARAG_CHAT_BASE_URL"); v != "" {
		cfg.Chat.BaseURL = v
	}
	if v := os.Getenv("GEMARAG_CHAT_API_KEY"); v != "" {
		cfg.Chat.APIKey = v
	}
	if v := os.Getenv("GEMARAG_EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("GEMARAG_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("GEMARAG_EMBED_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("GEMARAG_EMBED_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}

	// Fallback: check well-known provider env vars for API keys.
	if cfg.Chat.APIKey == "" {
		switch cfg.Chat.Provider {
		case "groq":
			cfg.Chat.APIKey = os.Getenv("GROQ_API_KEY")
		case "openai":
			cfg.Chat.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if cfg.Embedding.APIKey == "" {
		switch cfg.Embedding.Provider {
		case "groq":
			cfg.Embedding.APIKey = os.Getenv("GROQ_API_KEY")
		case "openai":
			cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

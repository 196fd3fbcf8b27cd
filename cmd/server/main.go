// Package main is the entry point for the tool hub API server.
//
// main stays small: read configuration, build the logger and the store,
// hand them to internal/server and block until shutdown. Everything else
// lives in importable packages so it can be tested.
//
//go:generate swag init -g cmd/server/main.go -o docs --parseInternal
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/sakif/toolhub/internal/config"
	"github.com/sakif/toolhub/internal/logger"
	"github.com/sakif/toolhub/internal/repository/store"
	"github.com/sakif/toolhub/internal/search"
	"github.com/sakif/toolhub/internal/server"
)

// @title           Tool Hub API
// @version         1.0
// @description     A searchable catalog of developer tools and public APIs.
// @BasePath        /
// @securityDefinitions.apikey SessionCookie
// @in              cookie
// @name            session
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck
	zap.ReplaceGlobals(log)

	// Refuse to start with a missing session secret or a broken database
	// setting rather than failing on the first request.
	if err := cfg.ValidateServer(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if !cfg.OAuth.Configured() {
		log.Warn("GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET not set; /auth/login will answer 500")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := store.Open(ctx, cfg.DB)
	cancel()
	if err != nil {
		log.Fatal("cannot open database", zap.String("driver", cfg.DB.Driver), zap.Error(err))
	}

	embedder, remote, err := search.NewEmbedder(context.Background(), cfg.LLM)
	if err != nil {
		_ = st.Close()
		log.Fatal("cannot build embedder", zap.Error(err))
	}
	if remote {
		log.Info("ai_search uses the OpenAI embedding model", zap.String("model", cfg.LLM.EmbeddingModel))
	} else {
		log.Warn("OPENAI_API_KEY not set; ai_search falls back to the local hash embedder")
	}

	srv, err := server.New(cfg, st, embedder, log)
	if err != nil {
		_ = st.Close()
		log.Fatal("failed to create server", zap.Error(err))
	}

	// Start blocks until SIGINT/SIGTERM and closes the store on the way out.
	if err := srv.Start(); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

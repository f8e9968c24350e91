package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/gastos/internal/attachment"
	"github.com/MrJamesThe3rd/gastos/internal/auth"
	"github.com/MrJamesThe3rd/gastos/internal/config"
	"github.com/MrJamesThe3rd/gastos/internal/graph"
	gastosHttp "github.com/MrJamesThe3rd/gastos/internal/http"
	"github.com/MrJamesThe3rd/gastos/internal/http/session"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
	"github.com/MrJamesThe3rd/gastos/internal/workspace"
)

const sessionIdleTimeout = 8 * time.Hour

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	log := slog.Default()

	settings, err := workspace.SettingsFromConfig(cfg)
	if err != nil {
		slog.Error("invalid site url", "error", err)
		os.Exit(1)
	}

	journal, closer, err := workspace.OpenJournal(cfg, log)
	if err != nil {
		slog.Error("failed to open attachment journal", "error", err)
		os.Exit(1)
	}
	defer closer.Close()

	var (
		tracker    = attachment.NewTracker(journal, log)
		sessions   = session.NewRegistry(sessionIdleTimeout, log)
		httpClient = &http.Client{Timeout: cfg.SharePoint.Timeout}
	)

	build := func(tokens *auth.Provider, cache *sharepoint.Cache) *workspace.Workspace {
		remote := graph.New(graph.Options{
			BaseURL:    cfg.SharePoint.GraphBaseURL,
			Tokens:     tokens,
			HTTPClient: httpClient,
			PageSize:   cfg.SharePoint.PageSize,
			UserAgent:  cfg.App.Name,
		})

		return workspace.New(remote, cache, tokens, settings, tracker, log)
	}

	router := gastosHttp.New(gastosHttp.Options{
		Sessions:       sessions,
		Build:          build,
		StrictSchema:   cfg.SharePoint.StrictSchema,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
	}

	slog.Info("starting server", "port", srv.Addr, "site", cfg.SharePoint.SiteURL)

	if err := srv.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// ABOUTME: The serve subcommand: wires config, store, upstream client, bot and API
// ABOUTME: Runs the Telegram bridge and the admin API until a signal arrives

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fatih/color"

	"github.com/2389/rail-scout/internal/api"
	"github.com/2389/rail-scout/internal/compartment"
	"github.com/2389/rail-scout/internal/config"
	"github.com/2389/rail-scout/internal/dialog"
	"github.com/2389/rail-scout/internal/rzd"
	"github.com/2389/rail-scout/internal/subscription"
	"github.com/2389/rail-scout/internal/telegram"
)

func runServe(ctx context.Context) error {
	configPath := config.Path()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}
	if err := cfg.ValidateBot(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Storage:  %s (%s)\n", cfg.Storage.Driver, cfg.Storage.Path)
	green.Print("    ▶ ")
	fmt.Printf("Upstream: %s\n", firstNonEmpty(cfg.RZD.PassURL, rzd.DefaultPassURL))
	if cfg.Server.HTTPAddr != "" {
		green.Print("    ▶ ")
		fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	}
	if len(cfg.Telegram.AllowedChats) > 0 {
		green.Print("    ▶ ")
		fmt.Printf("Chats:    %d allowed\n", len(cfg.Telegram.AllowedChats))
	}
	fmt.Println()

	store, err := subscription.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening subscription store: %w", err)
	}
	defer store.Close()

	poller := rzd.NewPoller(
		rzd.NewUserAgentPool(cfg.RZD.UserAgents),
		rzd.WithHTTPClient(&http.Client{Timeout: cfg.RZD.RequestTimeout}),
		rzd.WithPollInterval(cfg.RZD.PollInterval),
		rzd.WithPollAttempts(cfg.RZD.PollAttempts),
		rzd.WithLogger(logger),
	)
	client := rzd.NewClient(rzd.ClientConfig{
		SuggestURL: cfg.RZD.SuggestURL,
		PassURL:    cfg.RZD.PassURL,
		Language:   cfg.RZD.Language,
	}, poller)

	coordinator := dialog.New(dialog.Config{
		Upstream: client,
		Reducer: compartment.NewReducer(
			compartment.WithCarType(cfg.RZD.CompartmentType),
			compartment.WithLogger(logger),
		),
		Store:       store,
		RetryBudget: cfg.RZD.Retries(),
		Logger:      logger,
	})

	bridge, err := telegram.New(telegram.Config{
		Token:        cfg.Telegram.Token,
		APIURL:       cfg.Telegram.APIURL,
		AllowedChats: cfg.Telegram.AllowedChats,
		Logger:       logger,
	}, coordinator)
	if err != nil {
		return fmt.Errorf("creating telegram bridge: %w", err)
	}

	logger.Info("starting rail-scout",
		"config", configPath,
		"storage", cfg.Storage.Driver,
		"http_addr", cfg.Server.HTTPAddr,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	running := 1
	go func() { errCh <- bridge.Run(ctx) }()

	if cfg.Server.HTTPAddr != "" {
		running++
		server := api.NewServer(store, logger)
		go func() { errCh <- server.ListenAndServe(ctx, cfg.Server.HTTPAddr) }()
	}

	// The first component to stop takes the other one down with it.
	var firstErr error
	for i := 0; i < running; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
		cancel()
	}
	return firstErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

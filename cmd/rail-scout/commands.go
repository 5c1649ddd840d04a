// ABOUTME: Operator subcommands: init, subscriptions and health
// ABOUTME: Work directly on the config file, the store or a running instance

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/rail-scout/internal/config"
	"github.com/2389/rail-scout/internal/subscription"
)

func runInit() error {
	configPath := config.Path()
	if err := config.WriteTemplate(configPath); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Print("    ✓ ")
	fmt.Printf("Wrote %s\n", configPath)
	fmt.Println("      Set RAIL_SCOUT_TELEGRAM_TOKEN and run: rail-scout serve")
	return nil
}

func runSubscriptions(ctx context.Context, args []string) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := subscription.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening subscription store: %w", err)
	}
	defer store.Close()

	action := "list"
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "list":
		all, err := store.List(ctx)
		if err != nil {
			return err
		}
		return printSubscriptions(color.Output, subscription.Sorted(all))
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: rail-scout subscriptions delete ID")
		}
		id, err := store.Delete(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", id)
		return nil
	default:
		return fmt.Errorf("unknown subscriptions action: %s", action)
	}
}

func printSubscriptions(w io.Writer, subs []subscription.Subscription) error {
	if len(subs) == 0 {
		fmt.Fprintln(w, "no subscriptions")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCHAT\tKIND\tROUTE\tCREATED")
	for _, s := range subs {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", s.ID, s.ChatID, s.Kind, s.Label(), s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is not set")
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

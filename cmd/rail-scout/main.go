// ABOUTME: Entry point for rail-scout
// ABOUTME: Dispatches the serve, init, subscriptions and health subcommands

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version is set at build time.
var version = "dev"

const banner = `
           _ _                               _
 _ __ __ _(_) |      ___  ___ ___  _   _| |_
| '__/ _' | | |_____/ __|/ __/ _ \| | | | __|
| | | (_| | | |_____\__ \ (_| (_) | |_| | |_
|_|  \__,_|_|_|     |___/\___\___/ \__,_|\__|
`

func usage() {
	fmt.Println("Usage: rail-scout <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                        Run the Telegram bot and the admin API")
	fmt.Println("  init                         Write a starter config file")
	fmt.Println("  subscriptions [list]         List stored subscriptions")
	fmt.Println("  subscriptions delete ID      Delete one subscription")
	fmt.Println("  health                       Check a running instance")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "subscriptions":
		err = runSubscriptions(ctx, os.Args[2:])
	case "health":
		err = runHealth(ctx)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

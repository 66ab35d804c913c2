package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mailsub/mailsub/internal/migrate"
)

type output struct {
	Command string `json:"command"`
	Version int64  `json:"version"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		command     = flag.String("cmd", "up", "Migration command: up, status or reset")
		force       = flag.Bool("force", false, "Required for reset, which drops all data")
		format      = flag.String("format", "plain", "Output format: plain or json")
		timeout     = flag.Duration("timeout", 30*time.Second, "Overall timeout")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cmd := strings.ToLower(*command)
	switch cmd {
	case "up":
		if err := migrate.Up(ctx, *databaseURL); err != nil {
			fmt.Fprintln(os.Stderr, "migrate up:", err)
			os.Exit(1)
		}
	case "reset":
		if !*force {
			fmt.Fprintln(os.Stderr, "reset drops all subscriptions and tokens; pass -force to confirm")
			os.Exit(1)
		}
		if err := migrate.Reset(ctx, *databaseURL); err != nil {
			fmt.Fprintln(os.Stderr, "migrate reset:", err)
			os.Exit(1)
		}
	case "status":
	default:
		fmt.Fprintln(os.Stderr, "invalid command; use up, status or reset")
		os.Exit(1)
	}

	version, err := migrate.Version(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read version:", err)
		os.Exit(1)
	}

	out := output{Command: cmd, Version: version}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Version)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

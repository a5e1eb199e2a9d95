// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/carabiner-dev/raptor"
	"github.com/carabiner-dev/raptor/options"
)

const usage = `raptorcall - Call raptor services with keymaker application contexts

Usage:
  raptorcall context <source> [target]        Print the application context of a service pair
  raptorcall call <method> <url> [json_body]  Call a raptor service and print the response

Options:
  -config string     YAML options file (defaults to $RAPTOR_CONFIG)
  -context string    Keymaker application context token
  -source string     Source service of the call
  -target string     Target service of the call
  -debug             Enable debug output

Environment:
  CURRENT_PROFILE                  "prod" enables production mode
  DEFAULT_KM_APPLICATION_CONTEXT   Default keymaker application context
  KEYMAKER_CACHE_TIMEOUT_IN_DAYS   Lifetime of cached contexts (default: 7)

Examples:
  # Print the context sent when checkout calls payments
  raptorcall -context "$KM_TOKEN" context checkout payments

  # Post a JSON body
  raptorcall -source checkout -target payments call post https://payments.example.com/v1/pay '{"amount": 1}'
`

func main() {
	configPath := flag.String("config", os.Getenv(options.EnvVarConfig), "YAML options file")
	token := flag.String("context", "", "Keymaker application context token")
	source := flag.String("source", "", "Source service of the call")
	target := flag.String("target", "", "Target service of the call")
	debug := flag.Bool("debug", false, "Enable debug output")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	opts, err := loadOptions(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if *debug {
		opts.Debug = true
	}

	ctx := context.Background()
	if opts.Debug {
		ctx = clog.WithLogger(ctx, clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	switch args[0] {
	case "context":
		err = runContext(ctx, opts, *token, args[1:])
	case "call":
		err = runCall(ctx, opts, *token, *source, *target, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func loadOptions(path string) (*options.Client, error) {
	if path != "" {
		return options.LoadFile(path)
	}
	return options.FromEnv()
}

func runContext(ctx context.Context, opts *options.Client, token string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: raptorcall context <source> [target]")
	}
	source := args[0]
	target := ""
	if len(args) > 1 {
		target = args[1]
	}

	c, err := raptor.NewClient(opts)
	if err != nil {
		return err
	}
	defer c.Close() //nolint:errcheck

	value, found, err := c.ResolveContext(ctx, source, target, token)
	if err != nil {
		return fmt.Errorf("resolving application context: %w", err)
	}
	if !found {
		return fmt.Errorf("no application context for %s -> %s", source, target)
	}

	// Only the value is printed so it can be piped
	fmt.Println(value)
	return nil
}

func runCall(ctx context.Context, opts *options.Client, token, source, target string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: raptorcall call <method> <url> [json_body]")
	}

	funcs := []options.CallOptsFn{
		options.WithAppContext(token),
		options.WithServices(source, target),
	}
	if len(args) > 2 {
		var body any
		if err := json.Unmarshal([]byte(args[2]), &body); err != nil {
			return fmt.Errorf("invalid JSON body: %w", err)
		}
		funcs = append(funcs, options.WithBody(body))
	}

	c, err := raptor.NewClient(opts)
	if err != nil {
		return err
	}
	defer c.Close() //nolint:errcheck

	var out any
	if err := c.Call(ctx, strings.ToUpper(args[0]), args[1], &out, funcs...); err != nil {
		return fmt.Errorf("raptor call failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

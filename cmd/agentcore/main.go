// Package main is the entry point for agentcore.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dshills/agentcore/internal/agent"
	"github.com/dshills/agentcore/internal/app"
	"github.com/dshills/agentcore/internal/logstore"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type cliOptions struct {
	app app.Options

	serve   string
	runID   string
	input   string
	timeout time.Duration
	export  string
	list    bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(opts.app)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: shutdown: %v\n", err)
		}
	}()

	code := 0
	if opts.list {
		listAgents(os.Stdout, application)
	}

	if opts.runID != "" {
		code = runAgent(ctx, application, opts)
	}

	if opts.export != "" {
		if err := exportLogs(os.Stdout, application.Logs(), opts.export); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	if opts.serve != "" {
		addr, err := application.Serve(opts.serve)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "agentcore %s listening on %s\n", version, addr)
		<-ctx.Done()
	}

	return code
}

func runAgent(ctx context.Context, application *app.Application, opts cliOptions) int {
	progress := newProgressWriter(os.Stdout)
	result, err := application.RunTask(ctx, opts.runID, opts.input, agent.RunOptions{
		Timeout:    opts.timeout,
		OnProgress: progress.Update,
	})
	progress.Done()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if !result.Success {
		fmt.Fprintf(os.Stderr, "Agent %s did not complete: %s (after %s)\n",
			opts.runID, result.Error, result.ExecutionTime.Round(time.Millisecond))
		return 1
	}
	fmt.Fprintln(os.Stdout, result.Output)
	return 0
}

func listAgents(w io.Writer, application *app.Application) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tCATEGORY\tSTATUS")
	statuses := application.Executor().Statuses()
	for _, d := range application.Registry().List() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.DisplayName(), d.Kind, d.Category, statuses.Get(d.ID))
	}
	_ = tw.Flush()
}

func exportLogs(w io.Writer, logs *logstore.Store, format string) error {
	f, err := logstore.ParseFormat(format)
	if err != nil {
		return err
	}
	out, err := logs.Export(f, nil)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func parseFlags() cliOptions {
	var opts cliOptions
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.app.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.app.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.app.LogLevel, "log-level", "", "Log level (debug, info, warn, error, success); overrides the config")
	flag.BoolVar(&opts.app.Watch, "watch", false, "Reload the config file when it changes")
	flag.StringVar(&opts.serve, "serve", "", "Serve the HTTP API on this address (e.g. :8080)")
	flag.StringVar(&opts.runID, "run", "", "Run the agent with this id")
	flag.StringVar(&opts.input, "input", "", "Input passed to the agent run")
	flag.DurationVar(&opts.timeout, "timeout", 0, "Run timeout (default from config)")
	flag.StringVar(&opts.export, "export", "", "Print the logs in this format (json, csv, text)")
	flag.BoolVar(&opts.list, "list", false, "List the available agents")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "agentcore - agent task runner and log store\n\n")
		fmt.Fprintf(os.Stderr, "Usage: agentcore [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  agentcore -list                              List agents\n")
		fmt.Fprintf(os.Stderr, "  agentcore -run debug-specialist -input bug   Run one agent\n")
		fmt.Fprintf(os.Stderr, "  agentcore -export csv                        Dump saved logs\n")
		fmt.Fprintf(os.Stderr, "  agentcore -c agentcore.toml -serve :8080     Serve the API\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("agentcore %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if opts.app.LogLevel != "" {
		if _, err := logstore.ParseLevel(opts.app.LogLevel); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, error or success)\n", opts.app.LogLevel)
			os.Exit(1)
		}
	}
	if opts.timeout < 0 {
		fmt.Fprintf(os.Stderr, "Error: -timeout must not be negative\n")
		os.Exit(1)
	}
	if opts.runID == "" && opts.serve == "" && opts.export == "" && !opts.list {
		flag.Usage()
		os.Exit(2)
	}
	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", flag.Args())
		os.Exit(2)
	}

	return opts
}

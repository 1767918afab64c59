// Package cli wires the engine, transport, and observability packages
// into a single runnable process, grounded on the teacher's cobra root
// command (cmd/petalflow/main.go) and its cli.ExitError/exit-code pattern.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/corvidworks/ndbg/breakpoint"
	"github.com/corvidworks/ndbg/bus"
	"github.com/corvidworks/ndbg/config"
	"github.com/corvidworks/ndbg/engine"
	"github.com/corvidworks/ndbg/rpc"
)

// Exit codes for runDebug, per SPEC_FULL.md §6.
const (
	ExitSuccess     = 0
	ExitUsageError  = 1
	ExitSessionFail = 2
)

// NewRootCmd builds the single root command (no subcommands): the first
// positional argument is the target program's path. Further positional
// arguments are accepted but not used; they are not passed on to the target.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ndbg <target>",
		Short: "Remote, interactive source-level debugger engine",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDebug,
		// SilenceUsage prevents printing usage on every runtime error.
		SilenceUsage: true,
	}

	cmd.Flags().Int("port", 0, "RPC listen port (0 uses the config/default port)")
	cmd.Flags().String("config", "", "Path to a YAML config file")
	cmd.Flags().String("log-level", "", "Log level: debug | info | warn | error")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	cmd.Flags().Bool("quiet", false, "Suppress all output except errors")

	return cmd
}

func runDebug(cmd *cobra.Command, args []string) error {
	target := args[0]

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return exitError(ExitUsageError, "loading config: %v", err)
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Port = port
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	logger := newLogger(cfg.LogLevel, quiet)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	telem := setupTelemetry(ctx, logger)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer shutdownCancel()
		if err := telem.shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	sqliteRecorder, closeRecorder, err := openSQLiteRecorder(cfg)
	if err != nil {
		return exitError(ExitUsageError, "starting recorder: %v", err)
	}
	defer closeRecorder()

	recorders := make([]bus.Recorder, 0, len(telem.recorders())+1)
	for _, r := range telem.recorders() {
		recorders = append(recorders, r)
	}
	if sqliteRecorder != nil {
		recorders = append(recorders, sqliteRecorder)
	}
	messageBus := bus.NewMemBus(bus.MemBusConfig{Recorders: recorders})

	coordinator := engine.NewSessionCoordinator(engine.CoordinatorConfig{
		SourcePath:       target,
		Bus:              messageBus,
		Breakpoints:      breakpoint.NewRegistry(),
		ExtraIgnoreFiles: cfg.ExtraIgnoreFiles,
	})
	commands := engine.NewCommandInterface(coordinator, nil)

	server := rpc.NewServer(rpc.ServerConfig{
		Engine: commands,
		Addr:   fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Logger: logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe(ctx)
	}()

	logger.Info("debugger listening", "addr", server.Addr(), "target", target)

	host := NewScriptHost()
	executor := NewScriptExecutor(host, target)

	runErr := coordinator.Run(ctx, host, executor)
	cancel()
	if err := <-errCh; err != nil {
		logger.Error("rpc server stopped with an error", "error", err)
	}

	if runErr != nil {
		return exitError(ExitSessionFail, "session failed: %v", runErr)
	}
	return nil
}

func openSQLiteRecorder(cfg config.Config) (*bus.SQLiteRecorder, func(), error) {
	if cfg.Recorder.DSN == "" {
		return nil, func() {}, nil
	}
	recorder, err := bus.NewSQLiteRecorder(bus.SQLiteRecorderConfig{
		DSN:          cfg.Recorder.DSN,
		RetentionAge: cfg.Recorder.RetentionAge,
	})
	if err != nil {
		return nil, func() {}, err
	}
	return recorder, func() { _ = recorder.Close() }, nil
}

func newLogger(level string, quiet bool) *slog.Logger {
	if quiet {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const shutdownGrace = 5 * time.Second

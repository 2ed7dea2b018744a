package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/aclnotify/internal/config"
	"github.com/openmined/aclnotify/internal/utils"
	"github.com/openmined/aclnotify/internal/version"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "aclnotify.yaml"

func newRootCmd() *cobra.Command {
	var logFile io.Closer

	rootCmd := &cobra.Command{
		Use:           "aclnotify",
		Short:         "Notify users newly granted access to a ticket",
		Version:       version.Detailed(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			path, _ := cmd.Flags().GetString("log-file")
			closer, err := setupLogger(cmd.ErrOrStderr(), path, debug)
			if err != nil {
				return err
			}
			logFile = closer
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logFile != nil {
				logFile.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", defaultConfigFile, "Config file (yaml or json)")
	rootCmd.PersistentFlags().String("env-file", config.DefaultDotEnv, "Dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func main() {
	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setupLogger installs a tint handler on w and, when logPath is set, a JSON
// handler on that file. The returned closer is nil without a log file.
func setupLogger(w io.Writer, logPath string, debug bool) (io.Closer, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}

	var handler slog.Handler = tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    noColor,
	})

	var file *os.File
	if logPath != "" {
		path, err := utils.ResolvePath(logPath)
		if err != nil {
			return nil, err
		}
		if err := utils.EnsureParent(path); err != nil {
			return nil, fmt.Errorf("log directory: %w", err)
		}
		file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("log file: %w", err)
		}
		handler = utils.NewFanoutHandler(handler, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
	}

	slog.SetDefault(slog.New(handler))
	if file == nil {
		return nil, nil
	}
	return file, nil
}

// loadConfig reads the dotenv file, the config file and the environment, in
// increasing order of precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	v := config.NewViper()
	path, _ := cmd.Flags().GetString("config")
	if err := config.ReadFile(v, path, cmd.Flags().Changed("config")); err != nil {
		return nil, err
	}

	return config.Load(v)
}

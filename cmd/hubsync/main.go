package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/contenthub/hubsync/internal/config"
	"github.com/contenthub/hubsync/internal/utils"
	"github.com/contenthub/hubsync/internal/version"
	"github.com/contenthub/hubsync/internal/workspace"
)

const envPrefix = "HUBSYNC"

var (
	red    = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green  = color.New(color.FgHiGreen).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	cyan   = color.New(color.FgHiCyan).SprintFunc()
)

// errProblems makes the process exit non-zero after a sync that finished
// with failed, conflicted or rejected items.
var errProblems = errors.New("sync finished with problems")

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hubsync",
		Short:         "Synchronize a local working directory with a content hub",
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.SortFlags = false
	flags.StringP("workdir", "w", ".", "working directory")
	flags.StringP("server", "s", config.DefaultServerURL, "content hub server url")
	flags.StringP("tenant", "t", "", "content hub tenant")
	flags.Int("concurrency", 0, "items in flight per category (0 uses the default)")
	flags.Float64("rate-limit", 0, "maximum requests per second (0 is unlimited)")
	flags.StringP("config", "c", "", "config file (default <workdir>/.hubsync/config.json)")
	flags.BoolP("verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newSyncCmd(directionPush),
		newSyncCmd(directionPull),
		newStatusCmd(),
		newInitCmd(),
		newVersionCmd(),
	)
	return cmd
}

func main() {
	slog.SetDefault(slog.New(terminalHandler(false)))

	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errProblems) {
			fmt.Fprintf(os.Stderr, "%s: %s\n", red("ERROR"), err)
		}
		stop()
		os.Exit(1)
	}
}

func terminalHandler(verbose bool) slog.Handler {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
}

// setupLogging sends logs to the terminal and to the working directory log
// file. The returned func closes the file.
func setupLogging(ws *workspace.Workspace, verbose bool) (func(), error) {
	if err := utils.EnsureParent(ws.LogPath); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(ws.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logInterceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// Do not include time as it is added by the log interceptor.
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	prev := slog.Default()
	slog.SetDefault(slog.New(utils.NewMultiLogHandler(terminalHandler(verbose), fileHandler)))

	return func() {
		slog.SetDefault(prev)
		logInterceptor.Close()
		file.Close()
	}, nil
}

// loadConfig merges, in increasing priority, the config file, HUBSYNC_*
// environment variables (including a .env file in the working directory) and
// command line flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	workDir := os.Getenv(envPrefix + "_WORK_DIR")
	if f := cmd.Flag("workdir"); f != nil && (f.Changed || workDir == "") {
		workDir = f.Value.String()
	}

	if err := godotenv.Load(filepath.Join(workDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(resolveConfigPath(cmd, workDir))
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	v.SetDefault("work_dir", workDir)
	v.SetDefault("server_url", config.DefaultServerURL)
	v.BindPFlag("server_url", cmd.Flag("server"))
	v.BindPFlag("tenant", cmd.Flag("tenant"))
	v.BindPFlag("concurrency", cmd.Flag("concurrency"))
	v.BindPFlag("rate_limit", cmd.Flag("rate-limit"))
	if f := cmd.Flag("workdir"); f != nil && f.Changed {
		v.Set("work_dir", workDir)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cfg := &config.Config{
		Path:        v.ConfigFileUsed(),
		WorkDir:     v.GetString("work_dir"),
		ServerURL:   v.GetString("server_url"),
		Tenant:      v.GetString("tenant"),
		Concurrency: v.GetInt("concurrency"),
		RateLimit:   v.GetFloat64("rate_limit"),
		Token:       os.Getenv(config.EnvToken),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveConfigPath determines which config file path to use, honoring (in order):
// 1) An explicitly set --config flag
// 2) HUBSYNC_CONFIG_PATH environment variable
// 3) The config inside the working directory, if it exists
// 4) The per-user default
func resolveConfigPath(cmd *cobra.Command, workDir string) string {
	if f := cmd.Flag("config"); f != nil && f.Changed {
		return f.Value.String()
	}

	if envPath := os.Getenv(config.EnvConfigPath); envPath != "" {
		return envPath
	}

	if local := config.WorkDirConfigPath(workDir); utils.FileExists(local) {
		return local
	}

	if utils.FileExists(config.DefaultConfigPath) {
		return config.DefaultConfigPath
	}
	return config.WorkDirConfigPath(workDir)
}

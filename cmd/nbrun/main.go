package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/hunterops/nbrun/internal/engine"
	"github.com/hunterops/nbrun/internal/log"
	"github.com/hunterops/nbrun/internal/model"
	"github.com/hunterops/nbrun/internal/queue"
)

const configFileName = "nbrun.yaml"

var (
	config   model.Config
	closeLog = func() error { return nil }

	flagConfigFile string // value of --config flag
)

func main() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfigFile, "config", "", "Config file to load - default is "+configFileName+" in the config folder or current directory")
	flags.Bool("verbose", false, "verbose logging")
	flags.StringP("nb-path", "n", "./nb", "Path to input notebooks")
	flags.StringP("log-path", "l", "./log", "Path to the log folder")
	flags.StringP("output-path", "o", "./output", "Path to the root folder for executed notebooks")
	flags.StringP("queue-path", "q", "./queue", "Path to the input queue")
	flags.StringP("output-div", "d", "d", "Time division for output folders (h, d, m, y)")
	flags.StringP("findings-path", "f", "./findings", "Path to the root of the findings store")
	flags.DurationP("check-interval", "i", 3*time.Second, "Time to sleep between queue checks")
	flags.StringP("config-path", "c", "./config", "Path to the configuration folder")

	bindings := map[string]string{
		"verbose":        "verbose",
		"nb-path":        "nb_path",
		"log-path":       "log_path",
		"output-path":    "output_path",
		"queue-path":     "queue_path",
		"output-div":     "output_div",
		"findings-path":  "findings_path",
		"check-interval": "check_interval",
		"config-path":    "config_path",
	}
	for flag, key := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	// never print messages
	rootCmd.SilenceErrors = true

	// parse the config, setup logging
	rootCmd.PersistentPreRunE = initNbrun

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	err := rootCmd.Execute()
	if err != nil {
		slog.Error("nbrun failed", "err", err)
	}
	_ = closeLog()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "nbrun",
	Short:        "Queue driven batch runner for parameterized notebook jobs",
	SilenceUsage: true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "config creates the folder layout for notebook runs",
	RunE:  doConfig,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run monitors the queue folder for job files to execute",
	RunE:  doRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides the version of nbrun",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("nbrun: version info not available")
			return
		}

		fmt.Printf("nbrun: %s\n", info.Main.Version)
		fmt.Printf("go:    %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit: %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:   %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:  %s\n", s.Value)
			}
		}
		fmt.Println()
	},
}

// doConfig creates every configured folder and writes a default config file
// into the config folder unless one is already present. Idempotent.
func doConfig(cmd *cobra.Command, _ []string) error {
	for _, dir := range config.Folders() {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	path := filepath.Join(config.ConfigPath, configFileName)
	if exists(path) {
		slog.Info("config file already present", "path", path)
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	enc := yaml.NewEncoder(f)
	if err := enc.Encode(config); err != nil {
		return fmt.Errorf("storing configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("storing configuration: %w", err)
	}

	slog.Info("default config written", "path", path)
	return nil
}

func doRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("nbrun",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	slog.InfoContext(ctx, "====================")
	slog.InfoContext(ctx, "nbrun started", "queue_path", config.QueuePath)

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	eng := engine.NewPapermill(config.Engine)
	renderer := engine.NewNBConvert(config.Render)
	detector := queue.NewFindingsDetector(config.FindingsPath, renderer)

	watcher := queue.NewWatcher(config, eng, detector).WithInterrupt(interrupts)
	err := watcher.Run(ctx)

	slog.InfoContext(ctx, "nbrun ended")
	return err
}

func initNbrun(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	model.SetDefaults(v)

	configPath := flagConfigFile
	if envConfig, ok := os.LookupEnv("NBRUNCONFIG"); ok {
		configPath = envConfig
	}
	if configPath == "" {
		for _, d := range []string{v.GetString("config_path"), "."} {
			path := filepath.Join(d, configFileName)
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", configPath, err)
		}
	}

	var err error
	config, err = model.LoadConfig(v)
	if err != nil {
		return err
	}

	closeLog, err = log.Setup(config.LogPath, config.Verbose)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	slog.Debug("nbrun start", "configPath", configPath)
	slog.Debug("nbrun start", "config", config)
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Package cmd wires the profviz command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/profviz/profviz/internal/cli"
	"github.com/profviz/profviz/internal/config"
	"github.com/profviz/profviz/pkg/cpuprofile"
	"github.com/profviz/profviz/pkg/cpuprofile/model"
)

var (
	configPath string
	logLevel   string
	rootPath   string
)

var rootCmd = &cobra.Command{
	Use:           "profviz",
	Short:         "Analyze V8 .cpuprofile captures",
	Long:          "profviz builds an analytical model from a raw CPU sampling profile and derives bottom-up and flame graph views from it.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logging level")
	rootCmd.PersistentFlags().StringVar(&rootPath, "root", "", "workspace root used for relative source paths")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *zap.Logger, error) {
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("bad log level %q: %w", logLevel, err)
	}
	logger, err := cli.NewLogger(level)
	if err != nil {
		return nil, nil, err
	}
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if rootPath != "" {
		conf.RootPath = rootPath
	}
	return conf, logger, nil
}

func loadModel(path string, conf *config.Config, logger *zap.Logger) (*model.Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := cpuprofile.Decode(f)
	if err != nil {
		return nil, err
	}

	m, err := model.Build(raw, &model.Options{
		RootPath:          conf.RootPath,
		DependencyMarkers: conf.DependencyMarkers,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("built profile model",
		zap.String("profile", path),
		zap.Int("nodes", len(m.Nodes)),
		zap.Int("locations", len(m.Locations)),
		zap.Int("samples", len(m.Samples)),
		zap.Int64("durationUs", m.Duration),
	)
	return m, nil
}

// output opens the -o target, stdout when empty.
func output(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

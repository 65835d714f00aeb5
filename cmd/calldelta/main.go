package main

import (
	"fmt"
	"os"

	"github.com/agusespa/calldelta/internal/callgraph"
	"github.com/agusespa/calldelta/internal/tools"
	"github.com/agusespa/calldelta/internal/utils"
	"github.com/agusespa/calldelta/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "dev"

	cfgFile   string
	verbose   bool
	logFormat string
	logger    *logrus.Logger
	cfg       *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "calldelta",
	Short: "Changed functions and their call graphs between two source snapshots",
	Long: `calldelta compares the before and after versions of a code change, finds
the top-level functions the change touched and records what each of them
calls and is called by in both versions.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		switch logFormat {
		case "json":
			logger.SetFormatter(&logrus.JSONFormatter{})
		case "text", "":
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		default:
			return fmt.Errorf("unknown log format %q (want text or json)", logFormat)
		}

		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./calldelta.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(changedCmd)
	rootCmd.AddCommand(spansCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(patchCmd)
}

func newRegistry() (*tools.ParserRegistry, error) {
	registry, err := tools.NewParserRegistry(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise parsers: %w", err)
	}
	return registry, nil
}

// resolveLanguage picks the profile for a command: an explicit flag first,
// then the extension of path, then the configured default.
func resolveLanguage(registry *tools.ParserRegistry, flagValue, path string) (string, error) {
	language := flagValue
	if language == "" && path != "" {
		language = utils.DetectLanguageFromFilePath(path)
	}
	if language == "" {
		language = cfg.Language
	}
	if !registry.HasLanguage(language) {
		return "", fmt.Errorf("unsupported language %q (supported: %v)", language, registry.Languages())
	}
	return language, nil
}

func newBuilder() *callgraph.Builder {
	tool := callgraph.NewCflow(cfg.CallGraph.Binary, cfg.CallGraph.Timeout)
	return callgraph.NewBuilder(tool, cfg.CallGraph.Depth, cfg.CallGraph.IndentUnit, logger)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zosbridge/commongo/pkg/config"
	"github.com/zosbridge/commongo/pkg/logger"
	"github.com/zosbridge/commongo/pkg/manager"
	"github.com/zosbridge/commongo/pkg/rescapabilities"
)

var (
	configFile     string
	implementation string
	noFallback     bool
	verbose        bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "commongo",
	Short: "Database and messaging operations over Db2 and MQ",
	Long: "Run database and messaging operations against IBM Db2 and IBM MQ through " +
		"either the command-line tools or the native client libraries.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "configuration file (default: ./commongo.yaml)")
	rootCmd.PersistentFlags().StringVarP(&implementation, "implementation", "i", "", "implementation to use: cli or library (default: from configuration)")
	rootCmd.PersistentFlags().BoolVar(&noFallback, "no-fallback", false, "fail instead of falling back to cli when the library implementation is unavailable")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(mqCmd)
	rootCmd.AddCommand(implementationsCmd)
}

// loadConfig reads the configuration file and applies the command-line
// overrides shared by every subcommand.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if implementation != "" {
		cfg.Database.Implementation = implementation
		cfg.Messaging.Implementation = implementation
	}
	if noFallback {
		disabled := false
		cfg.Database.AutoFallback = &disabled
		cfg.Messaging.AutoFallback = &disabled
	}
	return cfg, nil
}

const version = "1.0.0"

func newLogger() *logger.Logger {
	log := logger.New("commongo", version)
	if !verbose {
		log.SetMinLevel("warn")
	}
	return log
}

// implementationsCmd reports which implementations the factory can satisfy.
var implementationsCmd = &cobra.Command{
	Use:   "implementations",
	Short: "Show available implementations",
	Long:  `Display which implementations can be created for each resource class in this build.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		available := manager.GetAvailableImplementations()
		for _, class := range []rescapabilities.ResourceClass{rescapabilities.ClassDatabase, rescapabilities.ClassMessaging} {
			impls := available[class]
			fmt.Printf("%-10s cli=%t library=%t\n", string(class)+":", impls.CLI, impls.Library)
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/log"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "extractioneval",
	Short: "Evaluate entity extraction classifiers against annotated ground truth",
	Long: `extractioneval compares classifier output for an entity type (cities, ethnicity,
eye-color, ...) with human annotations. It reports precision and recall over the
accepted and borderline entities and, when candidate scores are available, the
mean reciprocal rank of the correct entities next to a random-ranking baseline.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		return log.Setup(viper.GetString("log.level"), viper.GetBool("log.development"))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	settingDefaultConfig()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func loadConfig() error {
	if cfgFile == "" {
		return nil
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
	}
	return nil
}

package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	baseURL    string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envBase := os.Getenv("API_BASE_URL")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:   "nexlearn-exam-client",
		Short: "Terminal client for the NexLearn online examination service",
	}

	cmd.PersistentFlags().StringVar(&baseURL, "api-base", envBase, "backend base URL")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewStartCmd(&configPath, &baseURL))
	return cmd
}

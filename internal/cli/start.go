package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nexlearn-exam-client/internal/api"
	"nexlearn-exam-client/internal/config"
	"nexlearn-exam-client/internal/exam"
	"nexlearn-exam-client/internal/gateway"
	"nexlearn-exam-client/internal/infra/memory"
)

// NewStartCmd builds the CLI subcommand that runs the interactive exam flow.
func NewStartCmd(configPath, baseURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Sign in and take the exam",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, *configPath, *baseURL)
		},
	}
}

func runStart(cmd *cobra.Command, configPath, baseFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		// Config file is optional when the base URL comes from flag or env.
		cfg = config.Config{}
	}

	base := baseFlag
	if base == "" {
		base = cfg.API.BaseURL
	}
	if base == "" {
		return fmt.Errorf("backend base URL not configured (use --api-base, API_BASE_URL, or %s)", configPath)
	}

	timeout := config.Duration(cfg.API.Timeout, 30*time.Second)
	tick := config.Duration(cfg.Exam.TickInterval, time.Second)
	cooldown := config.Duration(cfg.OTP.ResendCooldown, 30*time.Second)

	store := memory.NewTokenStore()
	results := exam.NewResults()

	flow := NewFlow(cmd.InOrStdin(), cmd.OutOrStdout(), store, results, cooldown)
	gw := gateway.New(base, timeout, store, flow.OnAuthLost)
	client := api.New(gw)
	flow.Bind(client, exam.NewSessionWithTick(client, results, tick))

	return flow.Run(cmd.Context())
}

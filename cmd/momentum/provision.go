package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mkrv/momentum-bot/internal/logging"
	"github.com/mkrv/momentum-bot/internal/notify"
	"github.com/mkrv/momentum-bot/internal/provision"
)

func newProvisionCmd() *cobra.Command {
	var (
		webhookURL  string
		serviceName string
		unitDir     string
		tmuxSession string
		execStart   string
		workingDir  string
		serviceUser string
		logLevel    string
		skipVerify  bool
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Install the bot as a systemd service and inject the Slack webhook",
		Long: `Provision verifies the Slack webhook, injects it into the JSON config
(keeping a one-time backup of the original), installs and enables the
systemd unit, and stops any tmux session left from manual operation.
Each step must succeed before the next one runs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New(logging.Options{Level: logLevel})

			if webhookURL == "" {
				var err error
				webhookURL, err = promptWebhook(cmd)
				if err != nil {
					return err
				}
			}

			absConfig, err := filepath.Abs(configPath)
			if err != nil {
				return err
			}
			if execStart == "" {
				bin, err := os.Executable()
				if err != nil {
					return fmt.Errorf("resolve binary path: %w", err)
				}
				execStart = fmt.Sprintf("%s run --config %s", bin, absConfig)
			}
			if workingDir == "" {
				workingDir = filepath.Dir(absConfig)
			}

			opts := provision.Options{
				ConfigPath:  absConfig,
				WebhookURL:  webhookURL,
				ServiceName: serviceName,
				UnitDir:     unitDir,
				TmuxSession: tmuxSession,
				ExecStart:   execStart,
				WorkingDir:  workingDir,
				User:        serviceUser,
			}

			verifier := verifyFunc(webhookURL, skipVerify, log)
			steps := provision.Steps(opts, verifier, provision.ExecRunner{})
			if err := provision.Run(cmd.Context(), steps, log); err != nil {
				return err
			}
			log.Info().Str("service", serviceName).Msg("provisioning complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&webhookURL, "webhook", "", "Slack webhook URL, prompted for when omitted")
	cmd.Flags().StringVar(&serviceName, "service", provision.DefaultServiceName, "systemd service name")
	cmd.Flags().StringVar(&unitDir, "unit-dir", provision.DefaultUnitDir, "systemd unit directory")
	cmd.Flags().StringVar(&tmuxSession, "session", provision.DefaultTmuxSession, "tmux session to stop")
	cmd.Flags().StringVar(&execStart, "exec-start", "", "ExecStart line, defaults to this binary's run command")
	cmd.Flags().StringVar(&workingDir, "working-dir", "", "service working directory, defaults to the config directory")
	cmd.Flags().StringVar(&serviceUser, "user", "root", "user the service runs as")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "inject the webhook without a delivery check")

	return cmd
}

// verifyFunc builds the webhook delivery check, or nil when skipped.
func verifyFunc(webhookURL string, skip bool, log zerolog.Logger) func(context.Context) error {
	if skip {
		return nil
	}
	return notify.NewSlack(webhookURL, "", "", log).Verify
}

func promptWebhook(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Slack webhook URL: ")
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read webhook URL: %w", err)
	}
	url := strings.TrimSpace(line)
	if url == "" {
		return "", fmt.Errorf("webhook URL must not be empty")
	}
	return url, nil
}

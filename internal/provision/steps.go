package provision

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/rs/zerolog"
)

// Defaults matching the historical deployment.
const (
	DefaultServiceName = "trading-bot"
	DefaultUnitDir     = "/etc/systemd/system"
	DefaultTmuxSession = "trading_bot"
)

// unitTemplate is the systemd unit installed for the bot.
var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=Momentum trading bot
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User={{.User}}
WorkingDirectory={{.WorkingDir}}
ExecStart={{.ExecStart}}
Restart=always
RestartSec=10

[Install]
WantedBy=multi-user.target
`))

// CommandRunner abstracts external commands so provisioning can be exercised
// without a live systemd or tmux.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Step is one provisioning action.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Options configures a provisioning run.
type Options struct {
	ConfigPath  string
	WebhookURL  string
	ServiceName string
	UnitDir     string
	TmuxSession string
	ExecStart   string
	WorkingDir  string
	User        string
}

func (o *Options) applyDefaults() {
	if o.ServiceName == "" {
		o.ServiceName = DefaultServiceName
	}
	if o.UnitDir == "" {
		o.UnitDir = DefaultUnitDir
	}
	if o.TmuxSession == "" {
		o.TmuxSession = DefaultTmuxSession
	}
	if o.User == "" {
		o.User = "root"
	}
}

// Steps builds the provisioning sequence. verifyWebhook may be nil when the
// webhook should be injected without a delivery check.
func Steps(opts Options, verifyWebhook func(ctx context.Context) error, cmd CommandRunner) []Step {
	opts.applyDefaults()

	steps := []Step{}
	if verifyWebhook != nil {
		steps = append(steps, Step{
			Name: "verify webhook",
			Run:  verifyWebhook,
		})
	}

	steps = append(steps,
		Step{
			Name: "patch config",
			Run: func(context.Context) error {
				return PatchConfig(opts.ConfigPath, opts.WebhookURL)
			},
		},
		Step{
			Name: "install service unit",
			Run: func(ctx context.Context) error {
				if err := writeUnit(opts); err != nil {
					return err
				}
				return run(ctx, cmd, "systemctl", "daemon-reload")
			},
		},
		Step{
			// Best effort: a missing session or absent tmux is not a failure,
			// the point is only that no manual instance keeps trading.
			Name: "stop tmux session",
			Run: func(ctx context.Context) error {
				out, err := cmd.Run(ctx, "tmux", "kill-session", "-t", opts.TmuxSession)
				if err != nil && !ignorableTmuxError(err, out) {
					return fmt.Errorf("tmux kill-session: %w: %s", err, strings.TrimSpace(string(out)))
				}
				return nil
			},
		},
		Step{
			Name: "enable service",
			Run: func(ctx context.Context) error {
				return run(ctx, cmd, "systemctl", "enable", opts.ServiceName)
			},
		},
		Step{
			Name: "start service",
			Run: func(ctx context.Context) error {
				return run(ctx, cmd, "systemctl", "start", opts.ServiceName)
			},
		},
	)
	return steps
}

// Run executes the steps in order, stopping at the first failure.
func Run(ctx context.Context, steps []Step, log zerolog.Logger) error {
	for i, step := range steps {
		log.Info().Int("step", i+1).Int("of", len(steps)).Str("name", step.Name).Msg("provisioning")
		if err := step.Run(ctx); err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
	}
	return nil
}

func run(ctx context.Context, cmd CommandRunner, name string, args ...string) error {
	out, err := cmd.Run(ctx, name, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

func writeUnit(opts Options) error {
	var buf strings.Builder
	if err := unitTemplate.Execute(&buf, opts); err != nil {
		return fmt.Errorf("render unit: %w", err)
	}
	path := filepath.Join(opts.UnitDir, opts.ServiceName+".service")
	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("write unit %s: %w", path, err)
	}
	return nil
}

// ignorableTmuxError reports whether a tmux failure just means there was
// nothing to stop.
func ignorableTmuxError(err error, out []byte) bool {
	if _, ok := err.(*exec.Error); ok {
		return true // tmux not installed
	}
	msg := strings.ToLower(string(out))
	return strings.Contains(msg, "no server running") ||
		strings.Contains(msg, "session not found") ||
		strings.Contains(msg, "can't find session")
}

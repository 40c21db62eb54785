// Package cli exposes the monitor's commands: running the watch loop and
// verifying connectivity before a deployment goes live.
package cli

import (
	"context"
	"os"

	"github.com/gabapcia/poolwatch/internal/heartbeat"
	"github.com/gabapcia/poolwatch/internal/poolwatch"

	"github.com/urfave/cli/v3"
)

// Run initializes and executes the poolwatch CLI application.
//
// It registers all available commands, including:
//
//   - `start`: Runs the monitoring loop until interrupted.
//   - `verify`: Probes the chain node and notification channel, then exits.
//
// The heartbeat service may be nil when liveness pushes are disabled.
func Run(ctx context.Context, monitor poolwatch.Service, beat heartbeat.Service, chain ChainProbe, notifier NotifierProbe) error {
	app := &cli.Command{
		EnableShellCompletion: true,
		Name:                  "poolwatch",
		Description:           "Command-line interface for running the pool monitoring daemon.",
		Usage:                 "poolwatch [command] [flags]",
		Commands: []*cli.Command{
			startMonitorCommand(monitor, beat),
			verifyCommand(chain, notifier),
		},
	}

	return app.Run(ctx, os.Args)
}

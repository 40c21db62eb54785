package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gabapcia/poolwatch/internal/heartbeat"
	"github.com/gabapcia/poolwatch/internal/poolwatch"

	"github.com/urfave/cli/v3"
)

// startMonitorCommand returns a CLI command that runs the polling loop and,
// when configured, the liveness heartbeat.
//
// Usage example:
//
//	poolwatch start
//
// The process runs indefinitely until it receives an interrupt (SIGINT or
// SIGTERM). Shutdown waits for the in-flight cycle to finish its commit.
func startMonitorCommand(monitor poolwatch.Service, beat heartbeat.Service) *cli.Command {
	return &cli.Command{
		Name:        "start",
		Description: "Starts the pool monitoring loop and the liveness heartbeat.",
		Usage:       "Watches the pool contract and pushes alerts. Terminates gracefully on Ctrl+C or termination signals.",
		Action: func(ctx context.Context, c *cli.Command) error {
			quit := make(chan os.Signal, 1)
			defer close(quit)

			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			if err := monitor.Start(ctx); err != nil {
				return err
			}
			defer monitor.Close()

			if beat != nil {
				if err := beat.Start(ctx); err != nil {
					return err
				}
				defer beat.Close()
			}

			<-quit
			return nil
		},
	}
}

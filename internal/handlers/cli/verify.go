package cli

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gabapcia/poolwatch/internal/pkg/logger"

	"github.com/urfave/cli/v3"
)

// ChainProbe is the subset of the chain client needed to confirm the node
// is reachable and serving the expected network.
type ChainProbe interface {
	ChainID(ctx context.Context) (*big.Int, error)
	LatestBlock(ctx context.Context) (uint64, error)
}

// NotifierProbe confirms the notification channel accepts pushes with the
// configured credentials.
type NotifierProbe interface {
	Verify(ctx context.Context) error
}

// verifyCommand returns a CLI command that checks every external dependency
// and exits non-zero on the first failure.
//
// Usage example:
//
//	poolwatch verify
func verifyCommand(chain ChainProbe, notifier NotifierProbe) *cli.Command {
	return &cli.Command{
		Name:        "verify",
		Description: "Checks chain node connectivity and notification credentials, then exits.",
		Usage:       "Run before deploying to confirm the monitor can reach everything it needs.",
		Action: func(ctx context.Context, c *cli.Command) error {
			chainID, err := chain.ChainID(ctx)
			if err != nil {
				return fmt.Errorf("chain node check failed: %w", err)
			}

			head, err := chain.LatestBlock(ctx)
			if err != nil {
				return fmt.Errorf("chain head check failed: %w", err)
			}
			logger.Info(ctx, "chain node reachable", "chainId", chainID.String(), "head", head)

			if err := notifier.Verify(ctx); err != nil {
				return fmt.Errorf("notification channel check failed: %w", err)
			}
			logger.Info(ctx, "notification channel reachable")

			return nil
		},
	}
}

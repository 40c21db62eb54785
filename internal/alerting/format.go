package alerting

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/gabapcia/poolwatch/internal/poolwatch"
)

var (
	thousand = new(big.Rat).SetInt64(1_000)
	million  = new(big.Rat).SetInt64(1_000_000)
	billion  = new(big.Rat).SetInt64(1_000_000_000)

	// Rate denominators: lending protocols encode rates in RAY (1e27) or
	// WAD (1e18) fixed-point. Anything above the WAD-rate ceiling is
	// treated as RAY.
	wad        = new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	ray        = new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(27), nil))
	rayCeiling = new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil)
)

// formatUnits converts a raw on-chain integer into human units for the
// given precision.
func formatUnits(amount *big.Int, decimals int) *big.Rat {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetFrac(amount, scale)
}

// formatCompact renders a value with two decimals and K/M/B suffixes for
// large magnitudes.
func formatCompact(value *big.Rat) string {
	abs := new(big.Rat).Abs(value)
	switch {
	case abs.Cmp(billion) >= 0:
		return new(big.Rat).Quo(value, billion).FloatString(2) + "B"
	case abs.Cmp(million) >= 0:
		return new(big.Rat).Quo(value, million).FloatString(2) + "M"
	case abs.Cmp(thousand) >= 0:
		return new(big.Rat).Quo(value, thousand).FloatString(2) + "K"
	default:
		return value.FloatString(2)
	}
}

// formatAmount renders a raw token amount with the asset's precision and
// symbol. Unregistered assets fall back to the raw integer plus a
// shortened address so no information is lost.
func (r TokenRegistry) formatAmount(amount *big.Int, asset string) string {
	if amount == nil {
		return "0"
	}

	info, ok := r.Lookup(asset)
	if !ok {
		return fmt.Sprintf("%s (raw, %s)", amount.String(), shortAddress(asset))
	}

	return fmt.Sprintf("%s %s", formatCompact(formatUnits(amount, info.Decimals)), info.Symbol)
}

// formatRate renders a fixed-point interest rate as a percentage.
func formatRate(rate *big.Int) string {
	if rate == nil {
		return "0%"
	}

	denominator := wad
	if rate.Cmp(rayCeiling) > 0 {
		denominator = ray
	}

	percent := new(big.Rat).Quo(new(big.Rat).SetInt(rate), denominator)
	percent.Mul(percent, new(big.Rat).SetInt64(100))
	return percent.FloatString(2) + "%"
}

// eventTitle maps an event kind to its notification title.
func eventTitle(kind poolwatch.EventKind) string {
	switch kind {
	case poolwatch.KindDeposit:
		return "Deposit detected"
	case poolwatch.KindWithdraw:
		return "Withdrawal detected"
	case poolwatch.KindBorrow:
		return "Borrow detected"
	case poolwatch.KindRepay:
		return "Repayment detected"
	case poolwatch.KindLiquidation:
		return "Liquidation detected"
	case poolwatch.KindFlashLoan:
		return "Flash loan detected"
	default:
		return "Pool event detected"
	}
}

// renderEvent builds the notification for a tracked event. Output depends
// only on the event itself, so the same occurrence always produces the
// same message.
func (s *service) renderEvent(event poolwatch.TrackedEvent) Notification {
	lines := make([]string, 0, 8)

	if event.Kind == poolwatch.KindLiquidation {
		lines = append(lines,
			"Collateral: "+s.tokens.DisplayName(event.CollateralAsset),
			"Debt asset: "+s.tokens.DisplayName(event.Asset),
			"User: "+event.Participant,
			"Debt covered: "+s.tokens.formatAmount(event.Amount, event.Asset),
			"Collateral seized: "+s.tokens.formatAmount(event.CollateralAmount, event.CollateralAsset),
			"Liquidator: "+event.Liquidator,
		)
	} else {
		lines = append(lines,
			"Asset: "+s.tokens.DisplayName(event.Asset),
			"User: "+event.Participant,
			"Amount: "+s.tokens.formatAmount(event.Amount, event.Asset),
		)
		if event.Kind == poolwatch.KindBorrow {
			lines = append(lines, "Borrow rate: "+formatRate(event.BorrowRate))
		}
	}

	lines = append(lines,
		fmt.Sprintf("Block: %d", event.Position.Block),
		"Tx: "+event.TxHash,
		"ID: "+event.Identity,
	)

	highRisk := event.Kind == poolwatch.KindLiquidation || event.Kind == poolwatch.KindFlashLoan

	return Notification{
		Title:        eventTitle(event.Kind),
		Body:         strings.Join(lines, "\n"),
		Group:        s.group,
		HighPriority: highRisk || s.tokens.ExceedsLimit(event.Asset, event.Amount),
	}
}

// renderChange builds the notification for a state change. Tracked fields
// are semantic contract attributes, so any movement is treated as urgent.
func (s *service) renderChange(change poolwatch.StateChange) Notification {
	body := strings.Join([]string{
		"Field: " + change.Field,
		"Previous: " + change.Old,
		"Current: " + change.New,
		fmt.Sprintf("Block: %d", change.Observed),
	}, "\n")

	return Notification{
		Title:        "Contract state changed: " + change.Field,
		Body:         body,
		Group:        s.group,
		HighPriority: true,
	}
}

// render dispatches to the event or state-change formatter.
func (s *service) render(occurrence poolwatch.Occurrence) Notification {
	if occurrence.Event != nil {
		return s.renderEvent(*occurrence.Event)
	}
	return s.renderChange(*occurrence.Change)
}

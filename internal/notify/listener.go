package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lucidlabs/arbot/internal/domain"
	"github.com/lucidlabs/arbot/internal/events"
)

// Listener consumes engine events and turns them into operator alerts.
// Opportunity alerts are additionally gated by a profit-percentage threshold
// so that marginal spreads do not flood the channels.
type Listener struct {
	bus            *events.Bus
	notifier       *Notifier
	alertThreshold float64
	logger         *slog.Logger
}

// NewListener creates a Listener forwarding events from bus through notifier.
// Opportunities below alertThreshold percent profit are not forwarded.
func NewListener(bus *events.Bus, notifier *Notifier, alertThreshold float64, logger *slog.Logger) *Listener {
	return &Listener{
		bus:            bus,
		notifier:       notifier,
		alertThreshold: alertThreshold,
		logger:         logger.With(slog.String("component", "notify_listener")),
	}
}

// Run consumes events until the context is cancelled or the bus closes.
func (l *Listener) Run(ctx context.Context) error {
	ch, cancel := l.bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			l.handle(ctx, ev)
		}
	}
}

func (l *Listener) handle(ctx context.Context, ev events.Event) {
	var (
		title   string
		message string
	)

	switch ev.Type {
	case events.TypeOpportunityFound:
		opp, ok := ev.Payload.(domain.ArbitrageOpportunity)
		if !ok {
			return
		}
		if opp.ProfitPercentage < l.alertThreshold {
			return
		}
		title = fmt.Sprintf("Arbitrage opportunity: %s", opp.Symbol)
		message = fmt.Sprintf("Buy %s @ %.6f, sell %s @ %.6f\nSpread: %.3f%%  Volume: %.4f  Risk: %.2f",
			opp.BuyVenue, opp.BuyPrice, opp.SellVenue, opp.SellPrice,
			opp.ProfitPercentage, opp.TradeVolume, opp.RiskScore)

	case events.TypeTradeCompleted:
		trade, ok := ev.Payload.(domain.Trade)
		if !ok {
			return
		}
		title = fmt.Sprintf("Trade completed: %s", trade.Symbol)
		message = fmt.Sprintf("Bought on %s @ %.6f, sold on %s @ %.6f\nAmount: %.4f  Profit: %.6f",
			trade.BuyVenue, trade.BuyPrice, trade.SellVenue, trade.SellPrice,
			trade.Amount, trade.Profit)

	case events.TypeTradeFailed:
		trade, ok := ev.Payload.(domain.Trade)
		if !ok {
			return
		}
		title = fmt.Sprintf("Trade failed: %s", trade.Symbol)
		message = fmt.Sprintf("Buy %s / sell %s, amount %.4f\nError: %s",
			trade.BuyVenue, trade.SellVenue, trade.Amount, trade.ErrorMessage)

	case events.TypeStarted:
		title = "Engine started"
		message = "Arbitrage engine is running."

	case events.TypeStopped:
		title = "Engine stopped"
		message = "Arbitrage engine has shut down."

	default:
		return
	}

	if err := l.notifier.Notify(ctx, string(ev.Type), title, message); err != nil {
		l.logger.WarnContext(ctx, "notification delivery failed",
			slog.String("event", string(ev.Type)),
			slog.String("error", err.Error()),
		)
	}
}

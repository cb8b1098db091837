package exchange

import (
	"fmt"

	"github.com/lucidlabs/arbot/internal/config"
	"github.com/lucidlabs/arbot/internal/domain"
)

// New constructs the adapter for the named venue from its configuration.
// Unknown venue names are an error; callers log it and exclude the venue
// rather than aborting startup.
func New(name string, cfg config.VenueConfig, prices PriceSource) (Adapter, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("exchange: %s: %w", name, domain.ErrVenueDisabled)
	}

	switch name {
	case "binance":
		return NewBinance(cfg.APIKey, cfg.Secret, cfg.Sandbox), nil
	case "coinbase":
		return NewCoinbase(cfg.APIKey, cfg.Secret, cfg.Passphrase, cfg.Sandbox), nil
	case "kraken":
		return NewKraken(cfg.APIKey, cfg.Secret), nil
	case "paper":
		return NewPaper(name, cfg.Reference, cfg.PriceOffsetPct, prices), nil
	default:
		return nil, fmt.Errorf("exchange: %s: %w", name, domain.ErrUnknownVenue)
	}
}

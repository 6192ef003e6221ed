package eodhd

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// FetchCatalog returns the symbol list of an exchange. Each row's Symbol
// carries exchange as its exchange code; the listing venue goes to RealExchange.
func (c *Client) FetchCatalog(ctx context.Context, exchange string) ([]ExchangeSymbol, error) {
	path := "/exchange-symbol-list/" + url.PathEscape(exchange)

	p, err := c.getRecords(ctx, path, nil, catalogWeight)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog %s: %w", exchange, err)
	}

	if p.kind == pageEmpty {
		c.logger.Info("exchange has no catalog", zap.String("exchange", exchange))
		return nil, nil
	}

	symbols, dropped := ParseExchangeSymbols(exchange, p.records)
	if dropped > 0 {
		c.logger.Debug("skipped malformed catalog rows", zap.String("exchange", exchange), zap.Int("dropped", dropped))
	}
	return symbols, nil
}

package snapshot

import (
	"context"
	"fmt"
	"time"

	"eodsync/internal/eodhd/memorystore"
	"eodsync/pkg/eodhd"

	"go.uber.org/zap"
)

type CatalogFetcher interface {
	FetchCatalog(ctx context.Context, exchange string) ([]eodhd.ExchangeSymbol, error)
}

type CatalogWriter interface {
	InsertExchangeSymbols(ctx context.Context, symbols []eodhd.ExchangeSymbol) (int64, error)
}

type SymbolLoader struct {
	Fetcher CatalogFetcher
	Writer  CatalogWriter
	Timeout time.Duration // applied to the catalog request, zero for none
	Logger  *zap.Logger
}

// LoadSymbols fetches the symbol catalog of exchange, stores it and returns
// its symbols in catalog order without repeated keys.
func (l *SymbolLoader) LoadSymbols(ctx context.Context, exchange string) ([]eodhd.Symbol, error) {
	fetchCtx := ctx
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	catalog, err := l.Fetcher.FetchCatalog(fetchCtx, exchange)
	if err != nil {
		l.Logger.Error("failed to load exchange catalog", zap.String("exchange", exchange), zap.Error(err))
		return nil, fmt.Errorf("fetch catalog %s: %w", exchange, err)
	}

	inserted, err := l.Writer.InsertExchangeSymbols(ctx, catalog)
	if err != nil {
		return nil, fmt.Errorf("store catalog %s: %w", exchange, err)
	}

	set := memorystore.NewSymbolSet()
	for _, s := range catalog {
		set.Add(s.Symbol)
	}

	l.Logger.Info("loaded symbols",
		zap.String("exchange", exchange),
		zap.Int("count", set.Len()),
		zap.Int("duplicates", len(catalog)-set.Len()),
		zap.Int64("new", inserted),
	)
	return set.GetAll(), nil
}

package sqlstore

import (
	"context"
	"fmt"

	"eodsync/pkg/eodhd"

	"gorm.io/gorm/clause"
)

// InsertExchangeSymbols stores a catalog in one transaction, keeping rows
// that already exist. It returns the number of new rows.
func (c *Client) InsertExchangeSymbols(ctx context.Context, symbols []eodhd.ExchangeSymbol) (int64, error) {
	if len(symbols) == 0 {
		return 0, nil
	}

	records := make([]ExchangeSymbolRecord, 0, len(symbols))
	for _, s := range symbols {
		records = append(records, ToExchangeSymbolRecord(s))
	}

	tx := c.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(records, batchSize)
	if tx.Error != nil {
		return 0, fmt.Errorf("insert exchange symbols: %w", tx.Error)
	}
	return tx.RowsAffected, nil
}

// ExchangeSymbols returns the stored catalog of exchange ordered by code.
func (c *Client) ExchangeSymbols(ctx context.Context, exchange string) ([]ExchangeSymbolRecord, error) {
	var records []ExchangeSymbolRecord
	err := c.DB.WithContext(ctx).
		Where("exchange = ?", exchange).
		Order("code").
		Find(&records).Error
	return records, err
}

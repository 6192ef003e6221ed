package sqlstore

import (
	"context"
	"fmt"
	"time"

	"eodsync/pkg/eodhd"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InsertBars stores the bars of one symbol and marks it downloaded, in a
// single transaction. Bars already present are left untouched, so a symbol
// can be downloaded again without duplicates.
func (c *Client) InsertBars(ctx context.Context, symbol eodhd.Symbol, bars []eodhd.Bar) error {
	records := make([]BarRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, ToBarRecord(symbol, b))
	}

	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(records) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				CreateInBatches(records, batchSize).Error; err != nil {
				return fmt.Errorf("insert bars: %w", err)
			}
		}

		marker := DownloadedSymbol{
			Code:         symbol.Code,
			Exchange:     symbol.Exchange,
			Bars:         len(bars),
			DownloadedAt: time.Now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}, {Name: "exchange"}},
			DoUpdates: clause.AssignmentColumns([]string{"bars", "downloaded_at"}),
		}).Create(&marker).Error; err != nil {
			return fmt.Errorf("mark downloaded: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store %s: %w", symbol, err)
	}
	return nil
}

// CountBars returns the number of stored bars of symbol.
func (c *Client) CountBars(ctx context.Context, symbol eodhd.Symbol) (int64, error) {
	var n int64
	err := c.DB.WithContext(ctx).
		Model(&BarRecord{}).
		Where("code = ? AND exchange = ?", symbol.Code, symbol.Exchange).
		Count(&n).Error
	return n, err
}

// GetDownloaded returns the download marker of symbol.
func (c *Client) GetDownloaded(ctx context.Context, symbol eodhd.Symbol) (*DownloadedSymbol, error) {
	var d DownloadedSymbol
	err := c.DB.WithContext(ctx).
		Where("code = ? AND exchange = ?", symbol.Code, symbol.Exchange).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

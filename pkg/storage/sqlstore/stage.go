package sqlstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"
)

// StagePrices is the stage recorded once every symbol of an exchange has
// been dumped.
const StagePrices = "prices"

// StageDone records a finished dump stage of an exchange.
type StageDone struct {
	ID uint `gorm:"primaryKey"`

	Exchange string `gorm:"type:varchar(16);not null;index:idx_stage_exchange_stage,unique"`
	Stage    string `gorm:"type:varchar(32);not null;index:idx_stage_exchange_stage,unique"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (StageDone) TableName() string {
	return "stage_done"
}

// AddStage marks stage done for exchange; marking it twice is a no-op.
func (c *Client) AddStage(ctx context.Context, exchange, stage string) error {
	err := c.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&StageDone{Exchange: exchange, Stage: stage}).Error
	if err != nil {
		return fmt.Errorf("add stage %s/%s: %w", exchange, stage, err)
	}
	return nil
}

func (c *Client) HasStage(ctx context.Context, exchange, stage string) (bool, error) {
	var n int64
	err := c.DB.WithContext(ctx).
		Model(&StageDone{}).
		Where("exchange = ? AND stage = ?", exchange, stage).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check stage %s/%s: %w", exchange, stage, err)
	}
	return n > 0, nil
}

// Stages lists the finished stages of exchange.
func (c *Client) Stages(ctx context.Context, exchange string) ([]string, error) {
	var stages []string
	err := c.DB.WithContext(ctx).
		Model(&StageDone{}).
		Where("exchange = ?", exchange).
		Order("stage").
		Pluck("stage", &stages).Error
	return stages, err
}

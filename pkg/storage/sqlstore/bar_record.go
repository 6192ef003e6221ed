package sqlstore

import (
	"time"

	"eodsync/pkg/eodhd"

	"github.com/shopspring/decimal"
)

// BarRecord is one intraday bar stored in the database.
type BarRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Code      string    `gorm:"type:varchar(32);not null;index:idx_bar_code_exchange_ts,unique"`
	Exchange  string    `gorm:"type:varchar(16);not null;index:idx_bar_code_exchange_ts,unique"`
	Timestamp time.Time `gorm:"not null;index:idx_bar_code_exchange_ts,unique;index:idx_bar_timestamp"`

	GMTOffset int `gorm:"not null"`

	Open  decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	High  decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Low   decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Close decimal.Decimal `gorm:"type:decimal(20,6);not null"`

	Volume int64 `gorm:"not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

func (BarRecord) TableName() string {
	return "bar_record"
}

// ToBarRecord converts a fetched bar of symbol into a BarRecord for DB insertion.
func ToBarRecord(symbol eodhd.Symbol, b eodhd.Bar) BarRecord {
	return BarRecord{
		Code:      symbol.Code,
		Exchange:  symbol.Exchange,
		Timestamp: b.Timestamp.UTC(),
		GMTOffset: b.GMTOffset,
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
	}
}

// DownloadedSymbol marks a symbol whose history has been stored.
type DownloadedSymbol struct {
	ID uint `gorm:"primaryKey"`

	Code     string `gorm:"type:varchar(32);not null;index:idx_downloaded_code_exchange,unique"`
	Exchange string `gorm:"type:varchar(16);not null;index:idx_downloaded_code_exchange,unique"`

	Bars         int       `gorm:"not null"`
	DownloadedAt time.Time `gorm:"not null"`
}

func (DownloadedSymbol) TableName() string {
	return "downloaded_symbol"
}

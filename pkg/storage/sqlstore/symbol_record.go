package sqlstore

import (
	"time"

	"eodsync/pkg/eodhd"
)

// ExchangeSymbolRecord is one catalog row.
type ExchangeSymbolRecord struct {
	ID uint `gorm:"primaryKey"`

	Code     string `gorm:"type:varchar(32);not null;index:idx_symbol_code_exchange,unique"`
	Exchange string `gorm:"type:varchar(16);not null;index:idx_symbol_code_exchange,unique"`

	Name         string  `gorm:"type:varchar(255)"`
	Country      string  `gorm:"type:varchar(64)"`
	Currency     string  `gorm:"type:varchar(16)"`
	Type         string  `gorm:"type:varchar(64);index:idx_symbol_type"`
	ISIN         *string `gorm:"type:varchar(16)"`
	RealExchange string  `gorm:"type:varchar(32)"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

func (ExchangeSymbolRecord) TableName() string {
	return "exchange_symbol"
}

func ToExchangeSymbolRecord(s eodhd.ExchangeSymbol) ExchangeSymbolRecord {
	return ExchangeSymbolRecord{
		Code:         s.Code,
		Exchange:     s.Exchange,
		Name:         s.Name,
		Country:      s.Country,
		Currency:     s.Currency,
		Type:         s.Type,
		ISIN:         s.ISIN,
		RealExchange: s.RealExchange,
	}
}

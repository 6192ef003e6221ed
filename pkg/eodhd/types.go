package eodhd

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Symbol identifies one instrument on one exchange.
type Symbol struct {
	Code     string `json:"code"`     // e.g., "AAPL"
	Exchange string `json:"exchange"` // exchange short code used in requests, e.g., "US"
}

// Key returns the canonical "{code}.{exchange}" form.
func (s Symbol) Key() string {
	return s.Code + "." + s.Exchange
}

func (s Symbol) String() string { return s.Key() }

// ParseSymbolKey splits "{code}.{exchange}" at the last dot; codes may
// themselves contain dots (e.g., "BRK.B.US").
func ParseSymbolKey(key string) (Symbol, error) {
	i := strings.LastIndexByte(key, '.')
	if i <= 0 || i == len(key)-1 {
		return Symbol{}, fmt.Errorf("invalid symbol key: %q", key)
	}
	return Symbol{Code: key[:i], Exchange: key[i+1:]}, nil
}

// Bar is one intraday price bar.
type Bar struct {
	Timestamp time.Time       // bar open, UTC
	GMTOffset int             // exchange offset from GMT in seconds
	Open      decimal.Decimal // Opening price
	High      decimal.Decimal // Highest price during the interval
	Low       decimal.Decimal // Lowest price during the interval
	Close     decimal.Decimal // Closing price
	Volume    int64           // Trade volume (number of units traded)
}

// ExchangeSymbol is one row of an exchange's symbol catalog.
type ExchangeSymbol struct {
	Symbol
	Name         string
	Country      string
	Currency     string
	Type         string  // e.g., "Common Stock", "ETF"
	ISIN         *string // nil when the provider has none
	RealExchange string  // listing venue; "US" catalogs report NASDAQ, NYSE, ...
}

// intradayRecord is the wire shape of one element of /intraday.
type intradayRecord struct {
	Timestamp *int64           `json:"timestamp" validate:"required"`
	GMTOffset int              `json:"gmtoffset"`
	Datetime  string           `json:"datetime" validate:"required"`
	Open      *decimal.Decimal `json:"open" validate:"required"`
	High      *decimal.Decimal `json:"high" validate:"required"`
	Low       *decimal.Decimal `json:"low" validate:"required"`
	Close     *decimal.Decimal `json:"close" validate:"required"`
	Volume    *int64           `json:"volume" validate:"required"`
}

// catalogRecord is the wire shape of one element of /exchange-symbol-list.
type catalogRecord struct {
	Code     string  `json:"Code" validate:"required"`
	Name     string  `json:"Name"`
	Country  string  `json:"Country"`
	Exchange string  `json:"Exchange" validate:"required"`
	Currency string  `json:"Currency"`
	Type     string  `json:"Type"`
	Isin     *string `json:"Isin"`
}

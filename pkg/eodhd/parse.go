package eodhd

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ParseBars converts raw /intraday elements into bars.
// Elements that do not decode or miss a field are skipped; dropped reports how many.
func ParseBars(raw []json.RawMessage) (bars []Bar, dropped int) {
	bars = make([]Bar, 0, len(raw))

	for _, item := range raw {
		var rec intradayRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			dropped++
			continue
		}
		if err := validate.Struct(rec); err != nil {
			dropped++
			continue
		}
		// datetime is redundant with timestamp but a malformed one marks a broken row
		if _, err := time.ParseInLocation(datetimeLayout, rec.Datetime, time.UTC); err != nil {
			dropped++
			continue
		}

		bars = append(bars, Bar{
			Timestamp: time.Unix(*rec.Timestamp, 0).UTC(),
			GMTOffset: rec.GMTOffset,
			Open:      *rec.Open,
			High:      *rec.High,
			Low:       *rec.Low,
			Close:     *rec.Close,
			Volume:    *rec.Volume,
		})
	}
	return bars, dropped
}

// ParseExchangeSymbols converts raw /exchange-symbol-list elements requested
// for exchange into catalog rows, skipping malformed ones.
func ParseExchangeSymbols(exchange string, raw []json.RawMessage) (symbols []ExchangeSymbol, dropped int) {
	symbols = make([]ExchangeSymbol, 0, len(raw))

	for _, item := range raw {
		var rec catalogRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			dropped++
			continue
		}
		if err := validate.Struct(rec); err != nil {
			dropped++
			continue
		}

		symbols = append(symbols, ExchangeSymbol{
			Symbol:       Symbol{Code: rec.Code, Exchange: exchange},
			Name:         rec.Name,
			Country:      rec.Country,
			Currency:     rec.Currency,
			Type:         rec.Type,
			ISIN:         rec.Isin,
			RealExchange: rec.Exchange,
		})
	}
	return symbols, dropped
}

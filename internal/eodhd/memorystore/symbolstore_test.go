package memorystore

import (
	"sync"
	"testing"

	"eodsync/pkg/eodhd"

	"github.com/stretchr/testify/assert"
)

// go test -v --run TestSymbolSetKeepsFirstSeenOrder
func TestSymbolSetKeepsFirstSeenOrder(t *testing.T) {
	set := NewSymbolSet()

	assert.True(t, set.Add(eodhd.Symbol{Code: "MSFT", Exchange: "US"}))
	assert.True(t, set.Add(eodhd.Symbol{Code: "AAPL", Exchange: "US"}))
	assert.False(t, set.Add(eodhd.Symbol{Code: "MSFT", Exchange: "US"}))
	assert.True(t, set.Add(eodhd.Symbol{Code: "MSFT", Exchange: "LSE"}))

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []eodhd.Symbol{
		{Code: "MSFT", Exchange: "US"},
		{Code: "AAPL", Exchange: "US"},
		{Code: "MSFT", Exchange: "LSE"},
	}, set.GetAll())
}

// go test -race -v --run TestSymbolSetConcurrentAdd
func TestSymbolSetConcurrentAdd(t *testing.T) {
	set := NewSymbolSet()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, code := range []string{"A", "B", "C", "D"} {
				set.Add(eodhd.Symbol{Code: code, Exchange: "US"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, set.Len())
}

// go test -v --run TestDedup
func TestDedup(t *testing.T) {
	in := []eodhd.Symbol{{Code: "A", Exchange: "US"}, {Code: "A", Exchange: "US"}, {Code: "B", Exchange: "US"}}
	assert.Equal(t, []eodhd.Symbol{{Code: "A", Exchange: "US"}, {Code: "B", Exchange: "US"}}, Dedup(in))
	assert.Empty(t, Dedup(nil))
}

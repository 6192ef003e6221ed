package memorystore

import (
	"sync"

	"eodsync/pkg/eodhd"
)

// SymbolSet keeps symbols in first-seen order, dropping repeated keys.
type SymbolSet struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	symbols []eodhd.Symbol
}

func NewSymbolSet() *SymbolSet {
	return &SymbolSet{
		seen:    make(map[string]struct{}),
		symbols: make([]eodhd.Symbol, 0),
	}
}

// Add inserts symbol and reports whether it was new.
func (s *SymbolSet) Add(symbol eodhd.Symbol) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := symbol.Key()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.symbols = append(s.symbols, symbol)
	return true
}

func (s *SymbolSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.symbols)
}

func (s *SymbolSet) GetAll() []eodhd.Symbol {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]eodhd.Symbol, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Dedup is a convenience for a one-shot SymbolSet over symbols.
func Dedup(symbols []eodhd.Symbol) []eodhd.Symbol {
	set := NewSymbolSet()
	for _, sym := range symbols {
		set.Add(sym)
	}
	return set.GetAll()
}

package history

import "fmt"

// Pebble key schema for trade history
// Design principles:
// 1. Zero-padded timestamps so lexicographic order == time order
// 2. Trade id suffix breaks ties between fills in the same millisecond
// 3. Secondary per-symbol index for the dashboard's per-market view

const (
	prefixTrade  = "trade:" // global history, time-ordered
	prefixSymbol = "sym:"   // per-symbol index, time-ordered
)

// tradeKey returns the global history key for a fill
// Format: "trade:{unixMilli:020d}:{tradeID}"
func tradeKey(tsMilli int64, tradeID string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefixTrade, tsMilli, tradeID))
}

// symbolKey returns the per-symbol index key for a fill
// Format: "sym:{symbol}:{unixMilli:020d}:{tradeID}"
func symbolKey(symbol string, tsMilli int64, tradeID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", prefixSymbol, symbol, tsMilli, tradeID))
}

// symbolPrefix returns the prefix covering all fills of one symbol
func symbolPrefix(symbol string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixSymbol, symbol))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

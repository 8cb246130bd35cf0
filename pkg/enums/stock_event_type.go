package enums

import "fmt"

// StockEventType labels best-effort stock broadcasts.
type StockEventType string

const (
	StockEventReserved StockEventType = "stock.reserved"
	StockEventReleased StockEventType = "stock.released"
)

var validStockEventTypes = []StockEventType{
	StockEventReserved,
	StockEventReleased,
}

// String implements fmt.Stringer.
func (t StockEventType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known StockEventType.
func (t StockEventType) IsValid() bool {
	for _, candidate := range validStockEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseStockEventType converts raw input into a StockEventType.
func ParseStockEventType(value string) (StockEventType, error) {
	for _, candidate := range validStockEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock event type %q", value)
}

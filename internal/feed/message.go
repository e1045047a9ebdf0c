package feed

import "github.com/marcushennig/limit-order-book-simulation-sub000/internal/orderbook"

// PriceMessage is the wire format of a best price change shared by the
// WebSocket and Kafka sinks. Prices are in ticks.
type PriceMessage struct {
	RunID  string  `json:"run_id,omitempty"`
	Time   float64 `json:"time"`
	Bid    int64   `json:"bid"`
	Ask    int64   `json:"ask"`
	Spread int64   `json:"spread"`
}

// NewPriceMessage converts p for run runID.
func NewPriceMessage(runID string, p orderbook.PricePoint) PriceMessage {
	return PriceMessage{
		RunID:  runID,
		Time:   p.Time,
		Bid:    p.Bid,
		Ask:    p.Ask,
		Spread: p.Ask - p.Bid,
	}
}

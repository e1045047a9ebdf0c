package simulation

import (
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
)

// recorder turns simulated events into a trading day in tick units, so that
// the result can be fed back into the calibrator.
type recorder struct {
	window int64
	day    *model.TradingDay
	nextID int64
}

func newRecorder(symbol string, window int64) *recorder {
	return &recorder{
		window: window,
		day:    &model.TradingDay{Symbol: symbol},
	}
}

func (r *recorder) record(t float64, kind EventKind, price int64, book Book) {
	r.nextID++
	ev := model.Event{
		Time:    t,
		OrderID: r.nextID,
		Size:    1,
		Price:   price,
	}
	switch kind {
	case LimitBuy, LimitSell:
		ev.Type = model.Submission
	case CancelBuy, CancelSell:
		ev.Type = model.Cancellation
	case MarketBuy, MarketSell:
		ev.Type = model.VisibleExecution
	}
	// direction of the resting order that was touched
	ev.Direction = kind.Side()

	r.day.Events = append(r.day.Events, ev)
	r.day.Snapshots = append(r.day.Snapshots, book.Snapshot(r.window))
}

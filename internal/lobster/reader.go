package lobster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
)

// DummyPrice marks an unoccupied level in orderbook files.
const DummyPrice int64 = 9999999999

// ErrMisaligned is returned when the message and orderbook files have a
// different number of lines.
var ErrMisaligned = errors.New("message and orderbook files are misaligned")

// ParseMessage parses one message file record.
func ParseMessage(rec []string) (model.Event, error) {
	var ev model.Event
	if len(rec) < 6 {
		return ev, fmt.Errorf("message has %d fields, want 6", len(rec))
	}

	t, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
	if err != nil {
		return ev, fmt.Errorf("parse time: %w", err)
	}
	ints := make([]int64, 5)
	for i := range ints {
		ints[i], err = strconv.ParseInt(strings.TrimSpace(rec[i+1]), 10, 64)
		if err != nil {
			return ev, fmt.Errorf("parse field %d: %w", i+2, err)
		}
	}

	ev = model.Event{
		Time:      t,
		Type:      model.EventType(ints[0]),
		OrderID:   ints[1],
		Size:      ints[2],
		Price:     ints[3],
		Direction: model.Side(ints[4]),
	}
	if !ev.Type.Valid() {
		return ev, fmt.Errorf("unknown event type %d", ints[0])
	}
	if ev.Direction != model.Buy && ev.Direction != model.Sell {
		return ev, fmt.Errorf("unknown direction %d", ints[4])
	}
	return ev, nil
}

// ParseOrderbook parses one orderbook file record, dropping dummy levels.
func ParseOrderbook(rec []string) (model.Snapshot, error) {
	var snap model.Snapshot
	if len(rec) == 0 || len(rec)%4 != 0 {
		return snap, fmt.Errorf("orderbook has %d fields, want a multiple of 4", len(rec))
	}

	vals := make([]int64, len(rec))
	for i, f := range rec {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return snap, fmt.Errorf("parse field %d: %w", i+1, err)
		}
		vals[i] = v
	}

	for i := 0; i < len(vals); i += 4 {
		askP, askV, bidP, bidV := vals[i], vals[i+1], vals[i+2], vals[i+3]
		if askP != DummyPrice && askV > 0 {
			snap.Asks = append(snap.Asks, model.Level{Price: askP, Volume: askV})
		}
		if bidP != -DummyPrice && bidV > 0 {
			snap.Bids = append(snap.Bids, model.Level{Price: bidP, Volume: bidV})
		}
	}
	return snap, nil
}

// ReadDay reads a message and an orderbook stream in lockstep. Line pairs
// where either side fails to parse are logged and skipped.
func ReadDay(messages, orderbook io.Reader, logger *slog.Logger) ([]model.Event, []model.Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	msgs := newCSVReader(messages)
	books := newCSVReader(orderbook)

	var (
		events    []model.Event
		snapshots []model.Snapshot
		skipped   int
	)
	for line := 1; ; line++ {
		msgRec, msgErr := msgs.Read()
		bookRec, bookErr := books.Read()

		if errors.Is(msgErr, io.EOF) || errors.Is(bookErr, io.EOF) {
			if !errors.Is(msgErr, io.EOF) || !errors.Is(bookErr, io.EOF) {
				return nil, nil, fmt.Errorf("line %d: %w", line, ErrMisaligned)
			}
			break
		}
		if err := firstErr(msgErr, bookErr); err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, nil, fmt.Errorf("read line %d: %w", line, err)
			}
			logger.Warn("skipping malformed line", "line", line, "error", err)
			skipped++
			continue
		}

		ev, err := ParseMessage(msgRec)
		if err != nil {
			logger.Warn("skipping bad message", "line", line, "error", err)
			skipped++
			continue
		}
		snap, err := ParseOrderbook(bookRec)
		if err != nil {
			logger.Warn("skipping bad orderbook line", "line", line, "error", err)
			skipped++
			continue
		}
		events = append(events, ev)
		snapshots = append(snapshots, snap)
	}

	if skipped > 0 {
		logger.Warn("skipped lines", "count", skipped, "kept", len(events))
	}
	return events, snapshots, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

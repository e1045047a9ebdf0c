package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/shopspring/decimal"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/orderbook"
)

// ErrDelimiter is returned for an unknown delimiter name.
var ErrDelimiter = errors.New("unknown delimiter")

// Format controls how rows are rendered.
type Format struct {
	Delimiter rune  // Field separator
	TickSize  int64 // Raw price units per tick
	Dollars   bool  // Render prices in dollars
	Ticks     bool  // Render prices as ticks, as ReadInitialDepth expects
}

// DefaultFormat returns tab-separated raw prices with unit ticks.
func DefaultFormat() Format {
	return Format{Delimiter: '\t', TickSize: 1}
}

// ParseDelimiter maps "tab" and "comma" to separator runes.
func ParseDelimiter(name string) (rune, error) {
	switch name {
	case "tab", "":
		return '\t', nil
	case "comma":
		return ',', nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrDelimiter, name)
	}
}

// price renders tick in the configured unit.
func (f Format) price(tick int64) string {
	if f.Ticks {
		return strconv.FormatInt(tick, 10)
	}
	raw := tick * max(f.TickSize, 1)
	if !f.Dollars {
		return strconv.FormatInt(raw, 10)
	}
	return decimal.New(raw, -model.PriceExponent).StringFixed(model.PriceExponent)
}

func (f Format) writer(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	if f.Delimiter != 0 {
		cw.Comma = f.Delimiter
	}
	return cw
}

// WritePriceSeries writes one "time bid ask" row per best price change.
func WritePriceSeries(w io.Writer, series []orderbook.PricePoint, f Format) error {
	cw := f.writer(w)
	for _, p := range series {
		rec := []string{
			strconv.FormatFloat(p.Time, 'f', -1, 64),
			f.price(p.Bid),
			f.price(p.Ask),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write price row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDepthProfile writes "side price depth" rows, bids then asks, each in
// ascending price order. Side is B or S. Set f.Ticks to write a file that
// ReadInitialDepth can load back.
func WriteDepthProfile(w io.Writer, bids, asks []model.Level, f Format) error {
	cw := f.writer(w)
	for _, part := range []struct {
		side   string
		levels []model.Level
	}{{"B", bids}, {"S", asks}} {
		for _, l := range part.levels {
			rec := []string{part.side, f.price(l.Price), strconv.FormatInt(l.Volume, 10)}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("write depth row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistory writes recorded events as LOBSTER message rows:
// time, type, order id, size, price, direction. Values are written as
// recorded.
func WriteHistory(w io.Writer, day *model.TradingDay, f Format) error {
	cw := f.writer(w)
	for _, ev := range day.Events {
		rec := []string{
			strconv.FormatFloat(ev.Time, 'f', -1, 64),
			strconv.Itoa(int(ev.Type)),
			strconv.FormatInt(ev.OrderID, 10),
			strconv.FormatInt(ev.Size, 10),
			strconv.FormatInt(ev.Price, 10),
			strconv.Itoa(int(ev.Direction)),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write history row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadInitialDepth parses "side tick depth" lines into per-side depth maps.
// Side is B/S (or buy/sell, 1/-1). Lines starting with # are ignored and
// repeated ticks accumulate.
func ReadInitialDepth(r io.Reader, delimiter rune) (bids, asks map[int64]int64, err error) {
	cr := csv.NewReader(r)
	if delimiter != 0 {
		cr.Comma = delimiter
	}
	cr.Comment = '#'
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	bids = make(map[int64]int64)
	asks = make(map[int64]int64)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read depth file: %w", err)
		}

		line, _ := cr.FieldPos(0)
		tick, err := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: parse tick: %w", line, err)
		}
		depth, err := strconv.ParseInt(strings.TrimSpace(rec[2]), 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: parse depth: %w", line, err)
		}
		if depth < 0 {
			return nil, nil, fmt.Errorf("line %d: negative depth %d", line, depth)
		}

		switch strings.ToUpper(strings.TrimSpace(rec[0])) {
		case "B", "BUY", "1":
			bids[tick] += depth
		case "S", "SELL", "-1":
			asks[tick] += depth
		default:
			return nil, nil, fmt.Errorf("line %d: unknown side %q", line, rec[0])
		}
	}
	return bids, asks, nil
}

// LoadInitialDepth reads a depth file from path, gunzipping .gz files.
func LoadInitialDepth(path string, delimiter rune) (bids, asks map[int64]int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open depth file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip %s: %w", filepath.Base(path), err)
		}
		defer zr.Close()
		r = zr
	}
	return ReadInitialDepth(r, delimiter)
}

// File is a buffered, optionally compressed output file.
type File struct {
	f  *os.File
	zw *gzip.Writer
	bw *bufio.Writer
}

// Create creates path and its parent directories. Output is gzip-compressed
// when compress is set or path ends in .gz; compress appends the suffix.
func Create(path string, compress bool) (*File, error) {
	if compress && !strings.HasSuffix(path, ".gz") {
		path += ".gz"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}

	out := &File{f: f}
	if strings.HasSuffix(path, ".gz") {
		out.zw = gzip.NewWriter(f)
		out.bw = bufio.NewWriter(out.zw)
	} else {
		out.bw = bufio.NewWriter(f)
	}
	return out, nil
}

// Name returns the path of the underlying file.
func (o *File) Name() string { return o.f.Name() }

func (o *File) Write(p []byte) (int, error) { return o.bw.Write(p) }

// Close flushes all layers and closes the file.
func (o *File) Close() error {
	err := o.bw.Flush()
	if o.zw != nil {
		if cerr := o.zw.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := o.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(o.f.Name()), err)
	}
	return nil
}

// WriteFile creates path, runs write on it and closes it.
// It returns the final path, which gains .gz when compress is set.
func WriteFile(path string, compress bool, write func(io.Writer) error) (string, error) {
	out, err := Create(path, compress)
	if err != nil {
		return "", err
	}
	if err := write(out); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return out.Name(), nil
}

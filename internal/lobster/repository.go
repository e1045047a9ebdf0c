package lobster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
)

// ErrDayNotFound is returned when no file pair exists for a day.
var ErrDayNotFound = errors.New("trading day not found")

// Config holds repository settings.
type Config struct {
	Dir         string // Directory holding the LOBSTER files
	Levels      int    // Book depth N of the files; 0 accepts any
	Concurrency int    // Days loaded in parallel (default: 4)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Dir:         ".",
		Concurrency: 4,
	}
}

// Repository locates and loads LOBSTER trading days from a directory.
type Repository struct {
	cfg    Config
	logger *slog.Logger
}

// NewRepository creates a repository over cfg.Dir.
func NewRepository(cfg Config, logger *slog.Logger) *Repository {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{cfg: cfg, logger: logger}
}

type filePair struct {
	message   string
	orderbook string
}

// scan indexes the directory by symbol and date.
func (r *Repository) scan(symbol string) (map[string]*filePair, error) {
	entries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	pairs := make(map[string]*filePair)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := ParseFileName(e.Name())
		if err != nil {
			continue
		}
		if !strings.EqualFold(info.Symbol, symbol) {
			continue
		}
		if r.cfg.Levels > 0 && info.Levels != r.cfg.Levels {
			continue
		}
		key := info.Date.Format(time.DateOnly)
		p := pairs[key]
		if p == nil {
			p = &filePair{}
			pairs[key] = p
		}
		path := filepath.Join(r.cfg.Dir, e.Name())
		if info.Kind == KindMessage {
			p.message = path
		} else {
			p.orderbook = path
		}
	}
	return pairs, nil
}

// Dates returns the dates with a complete file pair for symbol, ascending.
func (r *Repository) Dates(symbol string) ([]time.Time, error) {
	pairs, err := r.scan(symbol)
	if err != nil {
		return nil, err
	}
	var dates []time.Time
	for key, p := range pairs {
		if p.message == "" || p.orderbook == "" {
			r.logger.Warn("incomplete trading day", "symbol", symbol, "date", key)
			continue
		}
		d, _ := time.Parse(time.DateOnly, key)
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	return dates, nil
}

// LoadDay loads one trading day.
func (r *Repository) LoadDay(symbol string, date time.Time) (*model.TradingDay, error) {
	pairs, err := r.scan(symbol)
	if err != nil {
		return nil, err
	}
	return r.load(symbol, date, pairs)
}

func (r *Repository) load(symbol string, date time.Time, pairs map[string]*filePair) (*model.TradingDay, error) {
	key := date.Format(time.DateOnly)
	p := pairs[key]
	if p == nil || p.message == "" || p.orderbook == "" {
		return nil, fmt.Errorf("%s %s: %w", symbol, key, ErrDayNotFound)
	}

	msg, err := openFile(p.message)
	if err != nil {
		return nil, err
	}
	defer msg.Close()
	book, err := openFile(p.orderbook)
	if err != nil {
		return nil, err
	}
	defer book.Close()

	logger := r.logger.With("symbol", symbol, "date", key)
	events, snapshots, err := ReadDay(msg, book, logger)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", symbol, key, err)
	}
	logger.Debug("loaded trading day", "events", len(events))

	return &model.TradingDay{
		Symbol:    symbol,
		Date:      date,
		Events:    events,
		Snapshots: snapshots,
	}, nil
}

// LoadDays loads the given days in parallel. Missing days are logged and
// skipped; any other error aborts the load. Days are returned in the order
// requested.
func (r *Repository) LoadDays(ctx context.Context, symbol string, dates []time.Time) ([]*model.TradingDay, error) {
	pairs, err := r.scan(symbol)
	if err != nil {
		return nil, err
	}

	days := make([]*model.TradingDay, len(dates))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, date := range dates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			day, err := r.load(symbol, date, pairs)
			if errors.Is(err, ErrDayNotFound) {
				r.logger.Warn("missing trading day", "symbol", symbol, "date", date.Format(time.DateOnly))
				return nil
			}
			if err != nil {
				return err
			}
			days[i] = day
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := days[:0]
	for _, d := range days {
		if d != nil {
			out = append(out, d)
		}
	}
	return out, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	g.Reader.Close()
	return g.f.Close()
}

func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open gzip %s: %w", filepath.Base(path), err)
	}
	return &gzipFile{Reader: zr, f: f}, nil
}

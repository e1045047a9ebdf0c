package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
)

const keyPrefix = "param/"

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache closed")

// Key identifies one calibrated day.
type Key struct {
	Symbol        string
	Date          time.Time
	LowerQuantile float64
	UpperQuantile float64
}

// bytes encodes k so that keys of one symbol sort by date.
func (k Key) bytes() []byte {
	return []byte(keyPrefix + k.Symbol + "/" + k.Date.Format("2006-01-02") + "/" +
		strconv.FormatFloat(k.LowerQuantile, 'g', -1, 64) + "/" +
		strconv.FormatFloat(k.UpperQuantile, 'g', -1, 64))
}

// Cache stores calibrated parameters per trading day.
type Cache struct {
	db     *pebble.DB
	logger *slog.Logger
}

// Open opens or creates a cache in dir.
func Open(dir string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	logger.Debug("calibration cache opened", "dir", dir)
	return &Cache{db: db, logger: logger}, nil
}

// Get returns the cached parameter for k. The boolean is false on a miss.
func (c *Cache) Get(k Key) (model.Parameter, bool, error) {
	var p model.Parameter
	if c.db == nil {
		return p, false, ErrClosed
	}

	val, closer, err := c.db.Get(k.bytes())
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return p, false, nil
		}
		return p, false, fmt.Errorf("get %s: %w", k.bytes(), err)
	}
	defer closer.Close()

	// val is only valid until closer.Close
	if err := json.Unmarshal(val, &p); err != nil {
		c.logger.Warn("discarding corrupt cache entry", "key", string(k.bytes()), "error", err)
		if err := c.Delete(k); err != nil {
			return model.Parameter{}, false, err
		}
		return model.Parameter{}, false, nil
	}
	return p, true, nil
}

// Put stores p under k.
func (c *Cache) Put(k Key, p model.Parameter) error {
	if c.db == nil {
		return ErrClosed
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal parameter: %w", err)
	}
	if err := c.db.Set(k.bytes(), data, pebble.Sync); err != nil {
		return fmt.Errorf("put %s: %w", k.bytes(), err)
	}
	return nil
}

// Delete removes the entry for k if present.
func (c *Cache) Delete(k Key) error {
	if c.db == nil {
		return ErrClosed
	}
	if err := c.db.Delete(k.bytes(), pebble.Sync); err != nil {
		return fmt.Errorf("delete %s: %w", k.bytes(), err)
	}
	return nil
}

// Dates returns the distinct cached dates of symbol in ascending order.
func (c *Cache) Dates(symbol string) ([]time.Time, error) {
	if c.db == nil {
		return nil, ErrClosed
	}

	prefix := []byte(keyPrefix + symbol + "/")
	upper := append([]byte(keyPrefix+symbol), '/'+1)
	iter, err := c.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("iterate cache: %w", err)
	}
	defer iter.Close()

	var dates []time.Time
	for iter.First(); iter.Valid(); iter.Next() {
		rest := strings.TrimPrefix(string(iter.Key()), string(prefix))
		day, _, _ := strings.Cut(rest, "/")
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		if n := len(dates); n > 0 && dates[n-1].Equal(date) {
			continue
		}
		dates = append(dates, date)
	}
	return dates, iter.Error()
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

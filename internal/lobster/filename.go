package lobster

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// File kinds.
const (
	KindMessage   = "message"
	KindOrderbook = "orderbook"
)

// ErrFileName is returned for names that do not follow the LOBSTER pattern.
var ErrFileName = errors.New("not a LOBSTER file name")

var fileNamePattern = regexp.MustCompile(
	`^([A-Za-z0-9.\-]+)_(\d{4}-\d{2}-\d{2})_(\d+)_(\d+)_(message|orderbook)_(\d+)\.csv(\.gz)?$`)

// FileInfo is the metadata encoded in a LOBSTER file name.
type FileInfo struct {
	Symbol     string
	Date       time.Time
	StartMs    int64 // Milliseconds after midnight
	EndMs      int64
	Kind       string
	Levels     int
	Compressed bool
}

// FileName returns the LOBSTER file name for info.
func FileName(info FileInfo) string {
	name := fmt.Sprintf("%s_%s_%d_%d_%s_%d.csv",
		info.Symbol, info.Date.Format(time.DateOnly), info.StartMs, info.EndMs, info.Kind, info.Levels)
	if info.Compressed {
		name += ".gz"
	}
	return name
}

// ParseFileName extracts the metadata from a LOBSTER file name.
func ParseFileName(name string) (FileInfo, error) {
	var info FileInfo
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return info, fmt.Errorf("%q: %w", name, ErrFileName)
	}

	date, err := time.Parse(time.DateOnly, m[2])
	if err != nil {
		return info, fmt.Errorf("parse date %q: %w", m[2], err)
	}
	start, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return info, fmt.Errorf("parse start %q: %w", m[3], err)
	}
	end, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return info, fmt.Errorf("parse end %q: %w", m[4], err)
	}
	levels, err := strconv.Atoi(m[6])
	if err != nil {
		return info, fmt.Errorf("parse levels %q: %w", m[6], err)
	}

	return FileInfo{
		Symbol:     m[1],
		Date:       date,
		StartMs:    start,
		EndMs:      end,
		Kind:       m[5],
		Levels:     levels,
		Compressed: m[7] != "",
	}, nil
}

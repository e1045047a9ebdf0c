package lobster

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
)

func TestParseFileName(t *testing.T) {
	tests := []struct {
		name    string
		want    FileInfo
		wantErr bool
	}{
		{
			name: "AAPL_2012-06-21_34200000_57600000_message_10.csv",
			want: FileInfo{Symbol: "AAPL", Date: time.Date(2012, 6, 21, 0, 0, 0, 0, time.UTC),
				StartMs: 34200000, EndMs: 57600000, Kind: KindMessage, Levels: 10},
		},
		{
			name: "MSFT_2012-06-21_34200000_57600000_orderbook_5.csv.gz",
			want: FileInfo{Symbol: "MSFT", Date: time.Date(2012, 6, 21, 0, 0, 0, 0, time.UTC),
				StartMs: 34200000, EndMs: 57600000, Kind: KindOrderbook, Levels: 5, Compressed: true},
		},
		{name: "AAPL_2012-06-21_message_10.csv", wantErr: true},
		{name: "notes.txt", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFileName(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrFileName) {
					t.Errorf("error = %v, want ErrFileName", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFileName: %v", err)
			}
			if !got.Date.Equal(tt.want.Date) {
				t.Errorf("date = %v, want %v", got.Date, tt.want.Date)
			}
			gotNoDate, wantNoDate := got, tt.want
			gotNoDate.Date, wantNoDate.Date = time.Time{}, time.Time{}
			if gotNoDate != wantNoDate {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if FileName(got) != tt.name {
				t.Errorf("FileName = %q, want %q", FileName(got), tt.name)
			}
		})
	}
}

func TestParseOrderbook_DropsDummyLevels(t *testing.T) {
	rec := strings.Split("5859400,200,5853300,18,9999999999,0,-9999999999,0", ",")
	snap, err := ParseOrderbook(rec)
	if err != nil {
		t.Fatalf("ParseOrderbook: %v", err)
	}
	if len(snap.Asks) != 1 || len(snap.Bids) != 1 {
		t.Fatalf("levels = %d asks, %d bids; want 1, 1", len(snap.Asks), len(snap.Bids))
	}
	if snap.Asks[0] != (model.Level{Price: 5859400, Volume: 200}) {
		t.Errorf("ask = %+v", snap.Asks[0])
	}
	if snap.Bids[0] != (model.Level{Price: 5853300, Volume: 18}) {
		t.Errorf("bid = %+v", snap.Bids[0])
	}

	if _, err := ParseOrderbook([]string{"1", "2", "3"}); err == nil {
		t.Error("expected error for truncated record")
	}
}

func TestParseMessage(t *testing.T) {
	ev, err := ParseMessage(strings.Split("34200.004241176,1,16113575,18,5853300,1", ","))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	want := model.Event{Time: 34200.004241176, Type: model.Submission, OrderID: 16113575,
		Size: 18, Price: 5853300, Direction: model.Buy}
	if ev != want {
		t.Errorf("got %+v, want %+v", ev, want)
	}

	bad := []string{
		"34200.1,9,1,1,1,1", // unknown type
		"34200.1,1,1,1,1,0", // unknown direction
		"abc,1,1,1,1,1",     // bad time
		"34200.1,1,1,1,1",   // too few fields
	}
	for _, line := range bad {
		if _, err := ParseMessage(strings.Split(line, ",")); err == nil {
			t.Errorf("ParseMessage(%q) expected error", line)
		}
	}
}

const (
	messageCSV = `34200.01,1,1,100,10000,1
34200.02,1,2,100,10200,-1
not,a,number,at,all,1
34200.04,3,1,100,10000,1
`
	orderbookCSV = `10200,0,10000,100,9999999999,0,-9999999999,0
10200,100,10000,100,9999999999,0,-9999999999,0
10200,100,10000,100,9999999999,0,-9999999999,0
10200,100,9900,50,9999999999,0,-9999999999,0
`
)

func TestReadDay_SkipsBadLinePairs(t *testing.T) {
	events, snapshots, err := ReadDay(strings.NewReader(messageCSV), strings.NewReader(orderbookCSV), nil)
	if err != nil {
		t.Fatalf("ReadDay: %v", err)
	}
	if len(events) != 3 || len(snapshots) != 3 {
		t.Fatalf("got %d events, %d snapshots; want 3, 3", len(events), len(snapshots))
	}
	if events[2].Type != model.Deletion {
		t.Errorf("third event type = %v, want deletion", events[2].Type)
	}
	// first snapshot has an ask with size 0 which is dropped
	if len(snapshots[0].Asks) != 0 {
		t.Errorf("first snapshot asks = %+v, want none", snapshots[0].Asks)
	}
	if bid, _ := snapshots[2].BestBid(); bid != 9900 {
		t.Errorf("last best bid = %d, want 9900", bid)
	}
}

func TestReadDay_Misaligned(t *testing.T) {
	_, _, err := ReadDay(strings.NewReader(messageCSV), strings.NewReader("10200,100,10000,100\n"), nil)
	if !errors.Is(err, ErrMisaligned) {
		t.Errorf("error = %v, want ErrMisaligned", err)
	}
}

func writeDay(t *testing.T, dir, symbol, date string, compress bool) {
	t.Helper()
	d, _ := time.Parse(time.DateOnly, date)
	for kind, content := range map[string]string{KindMessage: messageCSV, KindOrderbook: orderbookCSV} {
		info := FileInfo{Symbol: symbol, Date: d, StartMs: 34200000, EndMs: 57600000,
			Kind: kind, Levels: 2, Compressed: compress}
		f, err := os.Create(filepath.Join(dir, FileName(info)))
		if err != nil {
			t.Fatal(err)
		}
		if compress {
			zw := gzip.NewWriter(f)
			if _, err := zw.Write([]byte(content)); err != nil {
				t.Fatal(err)
			}
			if err := zw.Close(); err != nil {
				t.Fatal(err)
			}
		} else if _, err := f.WriteString(content); err != nil {
			t.Fatal(err)
		}
		if err := f.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRepository(t *testing.T) {
	dir := t.TempDir()
	writeDay(t, dir, "AAPL", "2012-06-22", false)
	writeDay(t, dir, "AAPL", "2012-06-21", true)
	writeDay(t, dir, "MSFT", "2012-06-21", false)
	// message file without its orderbook counterpart
	if err := os.WriteFile(filepath.Join(dir, "AAPL_2012-06-25_34200000_57600000_message_2.csv"),
		[]byte(messageCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Dir = dir
	repo := NewRepository(cfg, nil)

	dates, err := repo.Dates("AAPL")
	if err != nil {
		t.Fatalf("Dates: %v", err)
	}
	if len(dates) != 2 || dates[0].Format(time.DateOnly) != "2012-06-21" {
		t.Fatalf("Dates = %v, want 2012-06-21 and 2012-06-22", dates)
	}

	missing, _ := time.Parse(time.DateOnly, "2012-06-25")
	days, err := repo.LoadDays(context.Background(), "AAPL", append(dates, missing))
	if err != nil {
		t.Fatalf("LoadDays: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("loaded %d days, want 2", len(days))
	}
	for i, day := range days {
		if !day.Date.Equal(dates[i]) {
			t.Errorf("day %d date = %s, want %s", i, day.DateString(), dates[i].Format(time.DateOnly))
		}
		if day.Len() != 3 || day.Symbol != "AAPL" {
			t.Errorf("day %d: %d events, symbol %q", i, day.Len(), day.Symbol)
		}
	}

	if _, err := repo.LoadDay("AAPL", missing); !errors.Is(err, ErrDayNotFound) {
		t.Errorf("LoadDay error = %v, want ErrDayNotFound", err)
	}
}

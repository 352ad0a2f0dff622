package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// csvColumns is the canonical OHLCV layout shared by the loader, the writer,
// and the Binance cache files.
var csvColumns = []string{"open_time", "open", "high", "low", "close", "volume", "close_time"}

// LoadCSV reads an OHLCV file into a validated Series. Rows that fail to
// parse are skipped (a feed hiccup is a gap, not a fatal error); an empty or
// out-of-order result is.
func LoadCSV(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV parses OHLCV rows from r. A header row is detected by the first
// column name and skipped.
func ReadCSV(r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var bars []Bar
	first := true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("market: read csv: %w", err)
		}
		if first {
			first = false
			if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "open_time") {
				continue
			}
		}
		b, ok := parseBarRow(row)
		if !ok {
			continue
		}
		bars = append(bars, b)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("market: no valid ohlcv rows")
	}
	return NewSeries(bars)
}

// WriteCSV persists a series in the canonical layout (used for data caches).
func WriteCSV(path string, s *Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return err
	}
	for i := 0; i < s.Len(); i++ {
		b := s.Bar(i)
		rec := []string{
			b.OpenTime.UTC().Format(time.RFC3339),
			fl(b.Open), fl(b.High), fl(b.Low), fl(b.Close), fl(b.Volume),
			b.CloseTime.UTC().Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func parseBarRow(row []string) (Bar, bool) {
	if len(row) < 7 {
		return Bar{}, false
	}
	openTime, err := parseTime(row[0])
	if err != nil {
		return Bar{}, false
	}
	closeTime, err := parseTime(row[6])
	if err != nil {
		return Bar{}, false
	}

	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return Bar{}, false
		}
		vals[i] = v
	}

	return Bar{
		OpenTime:  openTime,
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
		CloseTime: closeTime,
	}, true
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	// Millisecond epoch, as emitted by exchange kline dumps.
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("market: bad timestamp %q", s)
}

func fl(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const defaultBinanceURL = "https://api.binance.com"

// Binance fetches spot klines. It is a data collaborator only; no keys are
// needed for public market data.
type Binance struct {
	BaseURL string
	Client  *http.Client
}

// NewBinance returns a klines source with a bounded default timeout.
func NewBinance(baseURL string) *Binance {
	if baseURL == "" {
		baseURL = defaultBinanceURL
	}
	return &Binance{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// GetBars fetches up to limit most recent closed klines for symbol/tf.
func (b *Binance) GetBars(ctx context.Context, symbol string, tf Timeframe, limit int) (*Series, error) {
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("interval", string(tf))
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		b.BaseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("market: binance klines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market: binance klines: unexpected status %s", resp.Status)
	}

	// Kline rows are heterogeneous arrays:
	// [openTime, open, high, low, close, volume, closeTime, ...]
	var raw [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("market: binance klines: decode: %w", err)
	}

	bars := make([]Bar, 0, len(raw))
	for _, row := range raw {
		if len(row) < 7 {
			continue
		}
		bar, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("market: binance klines: %w", err)
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("market: binance klines: empty response")
	}
	return NewSeries(bars)
}

func parseKline(row []json.RawMessage) (Bar, error) {
	var openMS, closeMS int64
	if err := json.Unmarshal(row[0], &openMS); err != nil {
		return Bar{}, err
	}
	if err := json.Unmarshal(row[6], &closeMS); err != nil {
		return Bar{}, err
	}

	var fields [5]float64
	for i := 0; i < 5; i++ {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return Bar{}, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Bar{}, err
		}
		fields[i] = v
	}

	return Bar{
		OpenTime:  time.UnixMilli(openMS).UTC(),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
		CloseTime: time.UnixMilli(closeMS).UTC(),
	}, nil
}

// FetchWithCache loads bars from a local CSV cache when present, otherwise
// fetches from src and writes the cache. Backtests use this so repeated runs
// over the same range are reproducible and offline.
func FetchWithCache(ctx context.Context, src Source, symbol string, tf Timeframe, limit int, cacheDir string) (*Series, error) {
	if cacheDir == "" {
		return src.GetBars(ctx, symbol, tf, limit)
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(cacheDir, fmt.Sprintf("%s_%s.csv", strings.ToLower(symbol), tf))
	if _, err := os.Stat(path); err == nil {
		return LoadCSV(path)
	}

	s, err := src.GetBars(ctx, symbol, tf, limit)
	if err != nil {
		return nil, err
	}
	if err := WriteCSV(path, s); err != nil {
		return nil, err
	}
	return s, nil
}

package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/swing/pipeline"
)

// WriteArtifacts persists the layered report: an aggregate summary and
// verdict at the root, per-variant trades, equity curve, and metrics below
// it. Output is deterministic for a deterministic RunResult.
func WriteArtifacts(dir string, res *RunResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("backtest: create output dir: %w", err)
	}

	for _, name := range res.Order {
		vr := res.Variants[name]
		vdir := filepath.Join(dir, name)
		if err := os.MkdirAll(vdir, 0o755); err != nil {
			return fmt.Errorf("backtest: create variant dir: %w", err)
		}
		if err := writeTradesCSV(filepath.Join(vdir, "trades.csv"), name, vr.Trades); err != nil {
			return err
		}
		if err := writeEquityCSV(filepath.Join(vdir, "equity_curve.csv"), vr.Curve); err != nil {
			return err
		}
		if err := writeJSON(filepath.Join(vdir, "metrics.json"), vr.Metrics); err != nil {
			return err
		}
		if err := writeJSON(filepath.Join(vdir, "segment_metrics.json"), vr.SegmentMetrics); err != nil {
			return err
		}
	}

	if err := writeJSON(filepath.Join(dir, "summary.json"), summaryDoc(res)); err != nil {
		return err
	}
	return writeGoNoGoMarkdown(filepath.Join(dir, "go_no_go.md"), res)
}

func writeTradesCSV(path, variant string, trades []pipeline.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("backtest: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"variant", "symbol", "opened_at", "closed_at", "close_reason",
		"qty", "entry_price", "exit_price", "stop_loss",
		"pnl", "pnl_pct", "ai_decision", "ai_confidence",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, t := range trades {
		pnlPct := 0.0
		if notional := t.Entry * t.Qty; notional > 0 {
			pnlPct = t.PnL / notional * 100.0
		}
		row := []string{
			variant,
			t.Symbol,
			t.OpenTime.UTC().Format(time.RFC3339),
			t.CloseTime.UTC().Format(time.RFC3339),
			t.ExitReason,
			formatFloat(t.Qty),
			formatFloat(t.Entry),
			formatFloat(t.Exit),
			formatFloat(t.Stop),
			formatFloat(t.PnL),
			formatFloat(pnlPct),
			t.AIDecision,
			formatFloat(t.AIConfidence),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeEquityCSV(path string, curve []pipeline.EquityPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("backtest: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "equity", "regime"}); err != nil {
		return err
	}
	for _, p := range curve {
		row := []string{
			p.Time.UTC().Format(time.RFC3339),
			formatFloat(p.Equity),
			string(p.Regime),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// summaryDoc shapes the aggregate report. Map keys serialize sorted, so the
// document is byte-stable.
func summaryDoc(res *RunResult) map[string]any {
	experiments := make(map[string]any, len(res.Variants))
	for name, vr := range res.Variants {
		experiments[name] = map[string]any{
			"metrics":         vr.Metrics,
			"segment_metrics": vr.SegmentMetrics,
			"warnings":        vr.Warnings,
		}
	}
	return map[string]any{
		"symbol":      res.Symbol,
		"started_at":  res.StartedAt.Format(time.RFC3339),
		"source":      res.Source,
		"segments":    res.Segments,
		"experiments": experiments,
		"go_no_go":    res.Verdict,
	}
}

func writeGoNoGoMarkdown(path string, res *RunResult) error {
	decision := "NO-GO"
	if res.Verdict.Go {
		decision = "GO"
	}
	candidate := res.Verdict.CandidateVariant
	if candidate == "" {
		candidate = "n/a"
	}

	var b strings.Builder
	b.WriteString("# Go / No-Go Review\n\n")
	fmt.Fprintf(&b, "- Decision: %s\n", decision)
	fmt.Fprintf(&b, "- Candidate Variant: %s\n", candidate)
	if res.Verdict.Reason != "" {
		fmt.Fprintf(&b, "- Reason: %s\n", res.Verdict.Reason)
	}
	b.WriteString("\n## Checks\n")
	for _, c := range res.Verdict.Checks {
		outcome := "FAIL"
		if c.Pass {
			outcome = "PASS"
		}
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, outcome)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("backtest: write %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("backtest: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("backtest: write %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

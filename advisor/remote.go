package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rustyeddy/swing/indicators"
	"github.com/rustyeddy/swing/strategy"
)

// Remote calls an external JSON oracle over HTTP. The core never inspects the
// model behind the endpoint; it only owns the request/verdict contract.
// Transport failures surface as ErrUnavailable; a response that violates the
// schema is treated as a rejection, never silently coerced.
type Remote struct {
	URL    string
	APIKey string
	Client *http.Client
}

// NewRemote builds a remote advisor with a bounded default client. The
// pipeline additionally wraps advisors in Bounded, so this timeout is a
// backstop, not the policy.
func NewRemote(url, apiKey string) *Remote {
	return &Remote{
		URL:    url,
		APIKey: apiKey,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

type remoteRequest struct {
	Symbol      string             `json:"symbol"`
	Side        string             `json:"side"`
	Trend       string             `json:"trend"`
	ATRQuantile float64            `json:"atr_quantile"`
	ATRLabel    string             `json:"atr_label"`
	Entry       float64            `json:"entry_price"`
	Stop        float64            `json:"stop_price"`
	Target      float64            `json:"target_price"`
	Reasons     []string           `json:"reasons"`
	Indicators  map[string]float64 `json:"indicators"`
}

type remoteResponse struct {
	Decision   string   `json:"decision"` // ALLOW, DENY, REDUCE
	Confidence *float64 `json:"confidence"`
	RiskFlags  []string `json:"risk_flags"`
	KeyReasons []string `json:"key_reasons"`
}

func (r *Remote) Evaluate(ctx context.Context, cand *strategy.Candidate, snap indicators.Snapshot) (Verdict, error) {
	if r.URL == "" {
		return Verdict{}, fmt.Errorf("%w: no endpoint configured", ErrUnavailable)
	}

	payload := remoteRequest{
		Symbol:      cand.Symbol,
		Side:        string(cand.Side),
		Trend:       string(snap.Trend),
		ATRQuantile: snap.ATRQuantile.F,
		ATRLabel:    string(snap.ATRLabel()),
		Entry:       cand.Entry,
		Stop:        cand.Stop,
		Target:      cand.Target,
		Reasons:     cand.Reasons,
		Indicators:  snap.Fields(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: encode request: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Verdict{}, fmt.Errorf("%w: oracle status %s", ErrUnavailable, resp.Status)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Reject("oracle_response_not_json", "INVALID_RESPONSE"), nil
	}
	return parseVerdict(out), nil
}

// parseVerdict maps a decoded oracle response onto the verdict contract.
// Schema violations resolve to a conservative rejection.
func parseVerdict(out remoteResponse) Verdict {
	if out.Confidence == nil || *out.Confidence < 0 || *out.Confidence > 1 {
		return Reject("oracle_confidence_out_of_range", "INVALID_RESPONSE")
	}
	conf := *out.Confidence

	reason := "oracle"
	if len(out.KeyReasons) > 0 {
		reason = out.KeyReasons[0]
	}

	switch out.Decision {
	case "ALLOW", "REDUCE":
		return Verdict{
			Approved:       true,
			Confidence:     conf,
			SizeMultiplier: Clamp01(conf),
			Reason:         reason,
			Flags:          out.RiskFlags,
		}
	case "DENY":
		return Verdict{
			Approved: false,
			Reason:   reason,
			Flags:    out.RiskFlags,
		}
	default:
		return Reject("oracle_decision_unknown", "INVALID_RESPONSE")
	}
}

// Package upstream fetches the mfapi.in-shaped scheme catalog and per-scheme
// NAV history, gated on the rate limiter exactly as marlonfan-go-stock-collector's
// YahooFinanceClient gates fetches on a fixed sleep — except here the gate is a
// shared, crash-durable token bucket rather than a hardcoded time.Sleep.
package upstream

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/marlonfan/mfnav/internal/apperr"
	"github.com/marlonfan/mfnav/internal/ratelimiter"
)

// SchemeSummary is one entry of the full upstream catalog.
type SchemeSummary struct {
	SchemeCode string `json:"schemeCode"`
	SchemeName string `json:"schemeName"`
}

// NAVObservation is one normalized (ISO date, decimal NAV) pair.
type NAVObservation struct {
	Date string          // ISO YYYY-MM-DD
	NAV  decimal.Decimal
}

// SchemeHistory is the normalized response of FetchScheme: fund metadata plus
// ascending-by-date NAV history.
type SchemeHistory struct {
	SchemeCode   string
	SchemeName   string
	FundHouse    string
	SchemeType   string
	Category     string
	History      []NAVObservation
}

// rawSchemeSummary mirrors the upstream catalog entry's wire shape.
type rawSchemeSummary struct {
	SchemeCode string `json:"schemeCode"`
	SchemeName string `json:"schemeName"`
}

// rawSchemeResponse mirrors GET {base}/{scheme_code}'s wire shape.
type rawSchemeResponse struct {
	Meta struct {
		FundHouse      string `json:"fund_house"`
		SchemeType     string `json:"scheme_type"`
		SchemeCategory string `json:"scheme_category"`
		SchemeCode     string `json:"scheme_code"`
		SchemeName     string `json:"scheme_name"`
	} `json:"meta"`
	Data []struct {
		Date string `json:"date"` // DD-MM-YYYY
		NAV  string `json:"nav"`
	} `json:"data"`
}

// Client is the mfapi-shaped upstream HTTP client. Every call gates on the
// limiter before issuing a request.
type Client struct {
	http    *resty.Client
	limiter *ratelimiter.Limiter
	baseURL string
}

// New builds a Client. baseURL is the catalog root, e.g. https://api.mfapi.in/mf;
// per-scheme history is fetched from baseURL+"/"+schemeCode.
func New(baseURL string, timeout time.Duration, limiter *ratelimiter.Limiter) *Client {
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetHeader("User-Agent", "mfnav/1.0 (+https://github.com/marlonfan/mfnav)")
	return &Client{http: c, limiter: limiter, baseURL: strings.TrimRight(baseURL, "/")}
}

// ListSchemes fetches the full catalog, gated on the limiter.
func (c *Client) ListSchemes(ctx context.Context) ([]SchemeSummary, error) {
	if err := c.limiter.WaitForToken(ctx, 0); err != nil {
		return nil, fmt.Errorf("upstream list schemes: limiter: %w", err)
	}

	var raw []rawSchemeSummary
	resp, err := c.http.R().SetContext(ctx).SetResult(&raw).Get(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("upstream list schemes: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	out := make([]SchemeSummary, 0, len(raw))
	for _, r := range raw {
		out = append(out, SchemeSummary{SchemeCode: r.SchemeCode, SchemeName: r.SchemeName})
	}
	return out, nil
}

// FetchScheme fetches a single scheme's metadata and full NAV history, gated
// on the limiter, and normalizes dates to ISO and NAV strings to decimal,
// reversing the upstream's newest-first ordering to ascending.
func (c *Client) FetchScheme(ctx context.Context, schemeCode string) (SchemeHistory, error) {
	if err := c.limiter.WaitForToken(ctx, 0); err != nil {
		return SchemeHistory{}, fmt.Errorf("upstream fetch scheme %s: limiter: %w", schemeCode, err)
	}

	var raw rawSchemeResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&raw).Get(c.baseURL + "/" + schemeCode)
	if err != nil {
		return SchemeHistory{}, fmt.Errorf("upstream fetch scheme %s: %w", schemeCode, err)
	}
	if err := checkStatus(resp); err != nil {
		return SchemeHistory{}, fmt.Errorf("upstream fetch scheme %s: %w", schemeCode, err)
	}

	history := make([]NAVObservation, 0, len(raw.Data))
	for _, d := range raw.Data {
		iso, err := normalizeDate(d.Date)
		if err != nil {
			return SchemeHistory{}, fmt.Errorf("upstream fetch scheme %s: %w", schemeCode, err)
		}
		nav, err := decimal.NewFromString(strings.TrimSpace(d.NAV))
		if err != nil {
			return SchemeHistory{}, fmt.Errorf("upstream fetch scheme %s: parse nav %q: %w", schemeCode, d.NAV, err)
		}
		history = append(history, NAVObservation{Date: iso, NAV: nav})
	}
	// Upstream returns newest-first; callers need ascending-by-date.
	sort.Slice(history, func(i, j int) bool { return history[i].Date < history[j].Date })

	return SchemeHistory{
		SchemeCode: schemeCode,
		SchemeName: raw.Meta.SchemeName,
		FundHouse:  raw.Meta.FundHouse,
		SchemeType: raw.Meta.SchemeType,
		Category:   raw.Meta.SchemeCategory,
		History:    history,
	}, nil
}

// checkStatus turns a 429 into the fatal apperr.ErrRateLimited and any other
// non-2xx into a plain propagated error, per the design's no-automatic-retry
// policy.
func checkStatus(resp *resty.Response) error {
	if resp.StatusCode() == 429 {
		return fmt.Errorf("%w: status 429 from upstream", apperr.ErrRateLimited)
	}
	if resp.IsError() {
		return fmt.Errorf("unexpected upstream status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

const upstreamDateLayout = "02-01-2006"
const isoDateLayout = "2006-01-02"

// normalizeDate converts an upstream DD-MM-YYYY date to ISO YYYY-MM-DD.
func normalizeDate(s string) (string, error) {
	t, err := time.Parse(upstreamDateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("parse upstream date %q: %w", s, err)
	}
	return t.Format(isoDateLayout), nil
}

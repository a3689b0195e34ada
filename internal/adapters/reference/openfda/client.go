package openfda

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"medication-adherence/internal/domain/explanations"
	"medication-adherence/internal/platform/httpclient"
)

var ErrUpstream = errors.New("openfda upstream error")

const labelPath = "/drug/label.json"

// Config del cliente openFDA. APIKey es opcional (sube el rate limit).
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implementa explanations.ReferenceLookup contra el endpoint de etiquetado.
type Client struct {
	http   *httpclient.Client
	apiKey string
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = "https://api.fda.gov"
	}
	hc, err := httpclient.NewWithBaseURL(base, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Client{http: hc, apiKey: strings.TrimSpace(cfg.APIKey)}, nil
}

type labelResponse struct {
	Results []struct {
		IndicationsAndUsage     []string `json:"indications_and_usage"`
		Purpose                 []string `json:"purpose"`
		DosageAndAdministration []string `json:"dosage_and_administration"`
	} `json:"results"`
}

// Fetch busca la primera etiqueta que matchee field:"value".
// Sin resultados (openFDA responde 404) => explanations.ErrNotFound.
func (c *Client) Fetch(ctx context.Context, q explanations.Query) (explanations.Label, error) {
	field := strings.TrimSpace(q.Field)
	value := strings.TrimSpace(q.Value)
	if field == "" || value == "" {
		return explanations.Label{}, explanations.ErrInvalidInput
	}

	query := url.Values{}
	query.Set("search", fmt.Sprintf("%s:%q", field, value))
	query.Set("limit", "1")
	if c.apiKey != "" {
		query.Set("api_key", c.apiKey)
	}

	var out labelResponse
	err := c.http.DoJSON(ctx, http.MethodGet, labelPath, httpclient.Request{Query: query}, &out)
	if httpclient.IsStatus(err, http.StatusNotFound) {
		return explanations.Label{}, explanations.ErrNotFound
	}
	if err != nil {
		return explanations.Label{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(out.Results) == 0 {
		return explanations.Label{}, explanations.ErrNotFound
	}

	r := out.Results[0]
	return explanations.Label{
		IndicationsAndUsage:     first(r.IndicationsAndUsage),
		Purpose:                 first(r.Purpose),
		DosageAndAdministration: first(r.DosageAndAdministration),
	}, nil
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return strings.TrimSpace(v[0])
}

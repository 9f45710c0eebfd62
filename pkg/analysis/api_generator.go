package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"market-insight-be/internal/entity"
	"market-insight-be/pkg/draftstore"
	"market-insight-be/pkg/strategy"
)

const defaultDataType = "customer_data"

// APIGenerator asks the remote analysis API for strategies. The caller's
// bearer token is forwarded.
type APIGenerator struct {
	BaseURL string
	HTTP    *http.Client
}

var _ strategy.Generator = (*APIGenerator)(nil)

func NewAPIGenerator(baseURL string) *APIGenerator {
	return &APIGenerator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
	}
}

func (g *APIGenerator) Generate(ctx context.Context, dataset entity.DatasetRef) (*strategy.GenerationOutput, error) {
	dataType := dataset.Type
	if dataType == "" {
		dataType = defaultDataType
	}
	payload, err := json.Marshal(generateRequest{DataId: dataset.Id, DataName: dataset.Name, DataType: dataType})
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/analysis/strategies", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := draftstore.AuthToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.HTTP.Do(req)
	if err != nil {
		return nil, unavailable("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable("read response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, unavailable("status %d: %s", resp.StatusCode, prefix(body, 100))
	}
	return decodeOutput(body)
}

func prefix(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n]
	}
	return s
}

package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"market-insight-be/pkg/strategy"
)

// ErrGeneratorUnavailable wraps every failure that should route the caller
// to the fallback strategies.
var ErrGeneratorUnavailable = errors.New("strategy generator unavailable")

type generateRequest struct {
	DataId   string `json:"dataId"`
	DataName string `json:"dataName"`
	DataType string `json:"dataType"`
}

type generateResponse struct {
	Strategies json.RawMessage `json:"strategies"`
	Warning    string          `json:"warning"`
	Message    string          `json:"message"`
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGeneratorUnavailable, fmt.Sprintf(format, args...))
}

// decodeOutput reads a {strategies, warning} document. The strategies list
// must be a non-empty array; elements that are not objects are dropped.
func decodeOutput(body []byte) (*strategy.GenerationOutput, error) {
	body = bytes.TrimPrefix(bytes.TrimSpace(body), []byte("\xef\xbb\xbf"))
	if len(body) == 0 {
		return nil, unavailable("empty response")
	}
	if body[0] == '<' {
		return nil, unavailable("received HTML instead of JSON")
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, unavailable("invalid JSON: %v", err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(resp.Strategies, &items); err != nil {
		return nil, unavailable("strategies is not a list")
	}

	out := &strategy.GenerationOutput{Warning: resp.Warning}
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			continue
		}
		var g strategy.GeneratedStrategy
		if err := json.Unmarshal(item, &g); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				continue
			}
		}
		out.Strategies = append(out.Strategies, g)
	}
	if len(out.Strategies) == 0 {
		return nil, unavailable("no usable strategies")
	}
	return out, nil
}

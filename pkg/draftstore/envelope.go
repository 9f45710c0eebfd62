package draftstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

const AnalysisTypeStrategyDraft = "strategy_draft"

// FlexibleID accepts a JSON string or number; the store has used both.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = FlexibleID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = FlexibleID(n.String())
	return nil
}

func (id FlexibleID) String() string {
	return string(id)
}

// Envelope is the store's opaque wrapper. AnalysisContent is left raw: it may
// be a JSON string holding JSON text, an already-structured object, or "{}".
type Envelope struct {
	Id              FlexibleID      `json:"id"`
	DataId          FlexibleID      `json:"data_id"`
	AnalysisType    string          `json:"analysis_type,omitempty"`
	AnalysisContent json.RawMessage `json:"analysis_content"`
}

type createDraftRequest struct {
	DataId          string `json:"dataId"`
	AnalysisType    string `json:"analysisType"`
	AnalysisContent string `json:"analysisContent"`
}

type createDraftResponse struct {
	Id FlexibleID `json:"id"`
}

type updateDraftRequest struct {
	AnalysisContent string `json:"analysisContent"`
}

type tokenKey struct{}

// WithAuthToken attaches the caller's bearer token for outgoing store calls.
func WithAuthToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func AuthToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

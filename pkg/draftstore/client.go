package draftstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const DefaultTimeout = 15 * time.Second

// Client talks to the remote analysis store. The store is a dumb blob store:
// it keeps whatever analysisContent it is given and does no merging.
type Client struct {
	BaseURL string
	Timeout time.Duration
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: timeout,
		HTTP:    &http.Client{},
	}
}

// List returns every draft envelope. Without an auth token in ctx the
// result is empty and no request is made.
func (c *Client) List(ctx context.Context) ([]Envelope, error) {
	if AuthToken(ctx) == "" {
		return []Envelope{}, nil
	}

	body, err := c.do(ctx, "list drafts", http.MethodGet, "/drafts", nil)
	if err != nil {
		return nil, err
	}

	body = bytes.TrimPrefix(bytes.TrimSpace(body), []byte("\xef\xbb\xbf"))
	if len(body) == 0 {
		return []Envelope{}, nil
	}
	if body[0] == '<' {
		return nil, &Error{Kind: KindMalformedPayload, Op: "list drafts", Err: errors.New("html body")}
	}

	var envelopes []Envelope
	if err := json.Unmarshal(body, &envelopes); err != nil {
		return nil, &Error{Kind: KindMalformedPayload, Op: "list drafts", Err: err}
	}
	return envelopes, nil
}

// Create persists a new draft and returns the store-assigned id.
func (c *Client) Create(ctx context.Context, dataId, analysisContent string) (string, error) {
	payload := createDraftRequest{
		DataId:          dataId,
		AnalysisType:    AnalysisTypeStrategyDraft,
		AnalysisContent: analysisContent,
	}

	body, err := c.do(ctx, "create draft", http.MethodPost, "/drafts", payload)
	if err != nil {
		return "", err
	}

	var resp createDraftResponse
	if err := json.Unmarshal(bytes.TrimSpace(body), &resp); err != nil {
		return "", &Error{Kind: KindMalformedPayload, Op: "create draft", Err: err}
	}
	if resp.Id == "" {
		return "", &Error{Kind: KindMalformedPayload, Op: "create draft", Err: errors.New("response carries no id")}
	}
	return resp.Id.String(), nil
}

// Update overwrites the content of an existing draft.
func (c *Client) Update(ctx context.Context, storeId, analysisContent string) error {
	_, err := c.do(ctx, "update draft", http.MethodPut, "/drafts/"+storeId, updateDraftRequest{
		AnalysisContent: analysisContent,
	})
	return err
}

func (c *Client) Delete(ctx context.Context, storeId string) error {
	_, err := c.do(ctx, "delete draft", http.MethodDelete, "/drafts/"+storeId, nil)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := AuthToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, classify(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:   KindRemoteRejected,
			Op:     op,
			Status: resp.StatusCode,
			Body:   rejectionMessage(body),
		}
	}
	return body, nil
}

func classify(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	}
	return &Error{Kind: KindNetworkFailure, Op: op, Err: err}
}

// rejectionMessage prefers the JSON "message" field and falls back to a prefix of the raw body.
func rejectionMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

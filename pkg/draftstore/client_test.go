package draftstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListWithoutTokenSkipsRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	envelopes, err := c.List(context.Background())

	require.NoError(t, err)
	assert.Empty(t, envelopes)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestListDecodesMixedIdsAndContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/drafts", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id": 42, "data_id": "d1", "analysis_content": "{\"strategy\":{}}"},
			{"id": "s1", "data_id": 7, "analysis_content": {"strategy": {"id": "c1"}}}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	envelopes, err := c.List(WithAuthToken(context.Background(), "tok"))

	require.NoError(t, err)
	require.Len(t, envelopes, 2)
	assert.Equal(t, FlexibleID("42"), envelopes[0].Id)
	assert.Equal(t, FlexibleID("d1"), envelopes[0].DataId)
	assert.Equal(t, FlexibleID("s1"), envelopes[1].Id)
	assert.Equal(t, FlexibleID("7"), envelopes[1].DataId)
	assert.Equal(t, byte('{'), envelopes[1].AnalysisContent[0])
}

func TestListHTMLBodyIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<!DOCTYPE html><html><body>Cannot GET</body></html>"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).List(WithAuthToken(context.Background(), "tok"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedPayload))
	assert.Equal(t, KindMalformedPayload, KindOf(err))
}

func TestCreateSendsDraftPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/drafts", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "d1", body["dataId"])
		assert.Equal(t, AnalysisTypeStrategyDraft, body["analysisType"])
		assert.Equal(t, `{"strategy":{}}`, body["analysisContent"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 42}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL, time.Second).Create(WithAuthToken(context.Background(), "tok"), "d1", `{"strategy":{}}`)

	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestUpdateAndDeleteAddressByStoreId(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	ctx := WithAuthToken(context.Background(), "tok")

	require.NoError(t, c.Update(ctx, "42", "{}"))
	require.NoError(t, c.Delete(ctx, "7"))
	assert.Equal(t, []string{"PUT /drafts/42", "DELETE /drafts/7"}, seen)
}

func TestFailureKinds(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		timeout  time.Duration
		wantKind Kind
		wantErr  error
	}{
		{
			name: "non-2xx with json message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"message":"db down"}`))
			},
			timeout:  time.Second,
			wantKind: KindRemoteRejected,
			wantErr:  ErrRemoteRejected,
		},
		{
			name: "stalled call",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			timeout:  50 * time.Millisecond,
			wantKind: KindTimeout,
			wantErr:  ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			err := NewClient(srv.URL, tt.timeout).Delete(WithAuthToken(context.Background(), "tok"), "1")

			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}
}

func TestRejectionCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"analysis not found"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).Delete(WithAuthToken(context.Background(), "tok"), "9")

	var storeErr *Error
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, http.StatusNotFound, storeErr.Status)
	assert.Equal(t, "analysis not found", storeErr.Body)
}

func TestUnreachableStoreIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Create(WithAuthToken(context.Background(), "tok"), "d1", "{}")

	assert.Equal(t, KindNetworkFailure, KindOf(err))
}

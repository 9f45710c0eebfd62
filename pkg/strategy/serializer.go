package strategy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"market-insight-be/internal/entity"
)

func toPayload(rec entity.StrategyRecord, withStoreId bool) strategyPayload {
	p := strategyPayload{
		Id:             Text(rec.ClientId),
		Name:           rec.Name,
		Description:    rec.Description,
		Type:           string(rec.Type),
		Status:         string(rec.Status),
		Progress:       Flex(rec.Progress),
		TargetAudience: rec.TargetAudience,
		Channels:       Strings(rec.Channels),
		Metrics: &metricsPayload{
			Reach:      rec.Metrics.Reach,
			Engagement: rec.Metrics.Engagement,
			Conversion: rec.Metrics.Conversion,
			Revenue:    rec.Metrics.Revenue,
		},
		AIGenerated: Bool(rec.Origin == entity.OriginAIGenerated || rec.Origin == entity.OriginFallback),
		Origin:      string(rec.Origin),
		Objectives:  rec.Objectives,
		Outcomes:    rec.Outcomes,
		Timeline:    rec.Timeline,
		Budget:      rec.Budget,
	}
	if withStoreId {
		p.DbId = Text(rec.StoreId)
	}
	if rec.DataSource != nil {
		p.DataSource = &dataSourcePayload{Id: Text(rec.DataSource.Id), Name: rec.DataSource.Name}
	}
	if rec.SavedAt != nil {
		p.SavedAt = rec.SavedAt.UTC().Format(time.RFC3339Nano)
	}
	return p
}

// Serialize renders rec as the analysisContent text sent to the store.
// The store id is left out; the envelope carries it.
func Serialize(rec entity.StrategyRecord) (string, error) {
	b, err := json.Marshal(struct {
		Strategy strategyPayload `json:"strategy"`
	}{Strategy: toPayload(rec, false)})
	if err != nil {
		return "", fmt.Errorf("serialize strategy %s: %w", rec.ClientId, err)
	}
	return string(b), nil
}

// EncodeCollection renders the whole canonical collection for the local cache slot.
func EncodeCollection(records []entity.StrategyRecord) (string, error) {
	payloads := make([]strategyPayload, len(records))
	for i, rec := range records {
		payloads[i] = toPayload(rec, true)
	}
	b, err := json.Marshal(payloads)
	if err != nil {
		return "", fmt.Errorf("encode strategy collection: %w", err)
	}
	return string(b), nil
}

// DecodeCollection reads a local cache slot. Bad elements are skipped and
// reported; a slot that cannot be read at all yields one failure and no records.
func DecodeCollection(text, label string) ([]entity.StrategyRecord, []*ParseFailure) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "<") {
		return nil, []*ParseFailure{newFailure(MalformedPayload, label, "received HTML instead of JSON")}
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		cleaned := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(text, utf8BOM), mojibakeBOM))
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr):
			return nil, []*ParseFailure{newFailure(MalformedPayload, label, "cache slot is not a JSON array")}
		case cleaned != text && json.Unmarshal([]byte(cleaned), &items) == nil:
		default:
			return nil, []*ParseFailure{unparsable(text, label, err)}
		}
	}

	records := make([]entity.StrategyRecord, 0, len(items))
	var failures []*ParseFailure
	for i, item := range items {
		itemLabel := fmt.Sprintf("%s#%d", label, i)
		if t := bytes.TrimSpace(item); len(t) == 0 || bytes.Equal(t, []byte("null")) {
			continue
		}
		rec, f := decodeStrategy(item, itemLabel)
		if f != nil {
			failures = append(failures, f)
			continue
		}
		records = append(records, *rec)
	}
	return records, failures
}

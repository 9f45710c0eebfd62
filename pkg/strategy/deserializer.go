package strategy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"market-insight-be/internal/entity"
	"market-insight-be/pkg/draftstore"
)

const (
	UnknownDatasetName = "Unknown dataset"
	DefaultChannel     = "Email"

	diagnosticRadius = 10
)

const (
	utf8BOM     = "\uFEFF"
	mojibakeBOM = "\u00EF\u00BB\u00BF"
)

// Result is either a record or a failure, never both.
type Result struct {
	Record  *entity.StrategyRecord
	Failure *ParseFailure
}

func (r Result) OK() bool {
	return r.Failure == nil && r.Record != nil
}

func failed(f *ParseFailure) Result {
	return Result{Failure: f}
}

// Parse turns untrusted draft content into a record. raw may be JSON text
// (string, []byte) or an already-decoded object (map[string]any,
// json.RawMessage holding an object). It never panics and never returns an
// error; every problem comes back as a typed failure.
func Parse(raw any, label string) Result {
	switch v := raw.(type) {
	case string:
		return parseText(v, label, false)
	case []byte:
		return parseText(string(v), label, false)
	case json.RawMessage:
		return parseStructured(v, label)
	case map[string]any:
		if len(v) == 0 {
			return failed(newFailure(EmptyPayload, label, "empty object"))
		}
		b, err := json.Marshal(v)
		if err != nil {
			return failed(newFailure(MalformedPayload, label, "structured value cannot be encoded: "+err.Error()))
		}
		return parseStructured(b, label)
	case nil:
		return failed(newFailure(MalformedPayload, label, "no content"))
	default:
		return failed(newFailure(MalformedPayload, label, fmt.Sprintf("unsupported payload type %T", raw)))
	}
}

// ParseEnvelope unwraps a store envelope and attaches its storeId and dataset reference.
func ParseEnvelope(env draftstore.Envelope, label string) Result {
	content := bytes.TrimSpace(env.AnalysisContent)

	var res Result
	switch {
	case len(content) == 0 || bytes.Equal(content, []byte("null")):
		res = failed(newFailure(MalformedPayload, label, "envelope has no analysis_content"))
	case content[0] == '"':
		var text string
		if err := json.Unmarshal(content, &text); err != nil {
			res = failed(newFailure(MalformedPayload, label, "analysis_content is not a valid string"))
		} else {
			res = parseText(text, label, false)
		}
	case content[0] == '{':
		res = parseStructured(content, label)
	default:
		res = failed(newFailure(MalformedPayload, label, "analysis_content is neither text nor an object"))
	}
	if !res.OK() {
		return res
	}

	rec := res.Record
	rec.StoreId = env.Id.String()
	name := UnknownDatasetName
	if rec.DataSource != nil && rec.DataSource.Name != "" {
		name = rec.DataSource.Name
	}
	dataID := env.DataId.String()
	if dataID == "" && rec.DataSource != nil {
		dataID = rec.DataSource.Id
	}
	rec.DataSource = &entity.DatasetRef{Id: dataID, Name: name}
	return res
}

func parseText(text, label string, recovered bool) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return failed(newFailure(MalformedPayload, label, "empty text"))
	}
	if strings.HasPrefix(trimmed, "<") {
		return failed(newFailure(MalformedPayload, label, "received HTML instead of JSON"))
	}
	if trimmed == "{}" {
		return failed(newFailure(EmptyPayload, label, "empty object"))
	}

	var top map[string]json.RawMessage
	err := json.Unmarshal([]byte(text), &top)
	if err == nil {
		return fromTopLevel(top, label)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return failed(newFailure(MalformedPayload, label, "content is not a JSON object"))
	}

	if !recovered {
		cleaned := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(text, utf8BOM), mojibakeBOM))
		if cleaned != text {
			return parseText(cleaned, label, true)
		}
	}
	return failed(unparsable(text, label, err))
}

func parseStructured(b []byte, label string) Result {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(b, &top); err != nil {
		return failed(newFailure(MalformedPayload, label, "structured content is not an object"))
	}
	return fromTopLevel(top, label)
}

func fromTopLevel(top map[string]json.RawMessage, label string) Result {
	if len(top) == 0 {
		return failed(newFailure(EmptyPayload, label, "empty object"))
	}
	raw, ok := top["strategy"]
	if !ok {
		return failed(newFailure(IncompleteStrategy, label, "content has no strategy field"))
	}
	rec, f := decodeStrategy(raw, label)
	if f != nil {
		return failed(f)
	}
	return Result{Record: rec}
}

func decodeStrategy(raw json.RawMessage, label string) (*entity.StrategyRecord, *ParseFailure) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, newFailure(IncompleteStrategy, label, "strategy is not an object")
	}
	// Mistyped optional fields are left zero; the required ones are checked below.
	var p strategyPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, newFailure(IncompleteStrategy, label, "strategy cannot be decoded: "+err.Error())
		}
	}
	return fromPayload(p, label)
}

func fromPayload(p strategyPayload, label string) (*entity.StrategyRecord, *ParseFailure) {
	clientID := strings.TrimSpace(string(p.Id))
	name := strings.TrimSpace(p.Name)
	if clientID == "" || name == "" || strings.TrimSpace(p.Type) == "" {
		return nil, newFailure(IncompleteStrategy, label, "strategy is missing id, name or type")
	}
	typ, ok := entity.ParseStrategyType(p.Type)
	if !ok {
		return nil, newFailure(IncompleteStrategy, label, fmt.Sprintf("unknown strategy type %q", p.Type))
	}

	rec := &entity.StrategyRecord{
		ClientId:       clientID,
		StoreId:        strings.TrimSpace(string(p.DbId)),
		Name:           name,
		Description:    p.Description,
		Type:           typ,
		Status:         parseStatus(p.Status),
		Progress:       int(p.Progress),
		TargetAudience: p.TargetAudience,
		Channels:       []string(p.Channels),
		Origin:         inferOrigin(p),
		Objectives:     p.Objectives,
		Outcomes:       p.Outcomes,
		Timeline:       p.Timeline,
		Budget:         p.Budget,
	}
	if p.Metrics != nil {
		rec.Metrics = entity.StrategyMetrics{
			Reach:      p.Metrics.Reach,
			Engagement: p.Metrics.Engagement,
			Conversion: p.Metrics.Conversion,
			Revenue:    p.Metrics.Revenue,
		}
	}
	if p.DataSource != nil && (p.DataSource.Id != "" || p.DataSource.Name != "") {
		rec.DataSource = &entity.DatasetRef{Id: string(p.DataSource.Id), Name: p.DataSource.Name}
	}
	if p.SavedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, p.SavedAt); err == nil {
			rec.SavedAt = &t
		}
	}

	Normalize(rec)
	return rec, nil
}

func parseStatus(s string) entity.StrategyStatus {
	if strings.EqualFold(strings.TrimSpace(s), string(entity.StrategyStatusActive)) {
		return entity.StrategyStatusActive
	}
	return entity.StrategyStatusDraft
}

func inferOrigin(p strategyPayload) entity.StrategyOrigin {
	switch strings.ToLower(strings.TrimSpace(p.Origin)) {
	case "aigenerated":
		return entity.OriginAIGenerated
	case "fallback":
		return entity.OriginFallback
	}
	if p.AIGenerated {
		return entity.OriginAIGenerated
	}
	return ""
}

func unparsable(text, label string, err error) *ParseFailure {
	offset := len(text)
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		offset = int(syntaxErr.Offset)
	}
	if offset > len(text) {
		offset = len(text)
	}
	start := offset - diagnosticRadius
	if start < 0 {
		start = 0
	}
	end := offset + diagnosticRadius
	if end > len(text) {
		end = len(text)
	}
	return &ParseFailure{
		Kind:    UnparsableJSON,
		Label:   label,
		Message: err.Error(),
		Offset:  offset,
		Window:  text[start:end],
	}
}

// Normalize enforces the record invariants in place: non-empty channels,
// every metric filled, progress within 0..100 and Active implying at least 10.
func Normalize(rec *entity.StrategyRecord) {
	channels := make([]string, 0, len(rec.Channels))
	for _, c := range rec.Channels {
		if c = strings.TrimSpace(c); c != "" {
			channels = append(channels, c)
		}
	}
	if len(channels) == 0 {
		channels = []string{DefaultChannel}
	}
	rec.Channels = channels

	if rec.Metrics.Reach == "" {
		rec.Metrics.Reach = entity.MetricPlaceholder
	}
	if rec.Metrics.Engagement == "" {
		rec.Metrics.Engagement = entity.MetricPlaceholder
	}
	if rec.Metrics.Conversion == "" {
		rec.Metrics.Conversion = entity.MetricPlaceholder
	}
	if rec.Metrics.Revenue == "" {
		rec.Metrics.Revenue = entity.MetricPlaceholder
	}

	if rec.Status == "" {
		rec.Status = entity.StrategyStatusDraft
	}
	if rec.Progress < 0 {
		rec.Progress = 0
	}
	if rec.Progress > 100 {
		rec.Progress = 100
	}
	if rec.Status == entity.StrategyStatusActive && rec.Progress < entity.ActiveMinProgress {
		rec.Progress = entity.ActiveMinProgress
	}
}

// Validate reports whether rec may enter the canonical collection.
func Validate(rec entity.StrategyRecord) error {
	if strings.TrimSpace(rec.ClientId) == "" {
		return fmt.Errorf("%w: missing client id", ErrInvalidRecord)
	}
	if strings.TrimSpace(rec.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRecord)
	}
	if _, ok := entity.ParseStrategyType(string(rec.Type)); !ok {
		return fmt.Errorf("%w: invalid type %q", ErrInvalidRecord, rec.Type)
	}
	return nil
}

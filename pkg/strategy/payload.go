package strategy

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Strings decodes a JSON array of strings, or wraps a lone scalar in a
// single-element slice. Older generator output sent channels as one string.
type Strings []string

func (s *Strings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}
	if b[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if v := scalarText(item); v != "" {
				out = append(out, v)
			}
		}
		*s = out
		return nil
	}
	if v := scalarText(b); v != "" {
		*s = []string{v}
	} else {
		*s = nil
	}
	return nil
}

// Text decodes any JSON scalar into its textual form. Ids have been both
// strings and numbers in stored drafts.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = Text(scalarText(b))
	return nil
}

func scalarText(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ""
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ""
		}
		return s
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return ""
		}
		return strconv.FormatBool(v)
	case 'n', '{', '[':
		return ""
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return ""
	}
	return n.String()
}

// Flex decodes a JSON number or numeric string into a float; anything else is zero.
type Flex float64

func (f *Flex) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseFloat(scalarText(b), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = Flex(v)
	return nil
}

// Bool decodes true/false or their string forms.
type Bool bool

func (v *Bool) UnmarshalJSON(b []byte) error {
	parsed, err := strconv.ParseBool(scalarText(b))
	*v = Bool(err == nil && parsed)
	return nil
}

type metricsPayload struct {
	Reach      string `json:"reach,omitempty"`
	Engagement string `json:"engagement,omitempty"`
	Conversion string `json:"conversion,omitempty"`
	Revenue    string `json:"revenue,omitempty"`
}

type dataSourcePayload struct {
	Id   Text   `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// strategyPayload is the self-contained strategy object embedded in a draft
// envelope and stored, one per element, in the local cache slot.
type strategyPayload struct {
	Id             Text               `json:"id"`
	DbId           Text               `json:"dbId,omitempty"`
	Name           string             `json:"name"`
	Description    string             `json:"description,omitempty"`
	Type           string             `json:"type"`
	Status         string             `json:"status,omitempty"`
	Progress       Flex               `json:"progress"`
	TargetAudience string             `json:"targetAudience,omitempty"`
	Channels       Strings            `json:"channels"`
	Metrics        *metricsPayload    `json:"metrics,omitempty"`
	AIGenerated    Bool               `json:"aiGenerated"`
	Origin         string             `json:"origin,omitempty"`
	Objectives     string             `json:"objectives,omitempty"`
	Outcomes       string             `json:"outcomes,omitempty"`
	Timeline       string             `json:"timeline,omitempty"`
	Budget         string             `json:"budget,omitempty"`
	DataSource     *dataSourcePayload `json:"dataSource,omitempty"`
	SavedAt        string             `json:"savedAt,omitempty"`
}

type contentPayload struct {
	Strategy json.RawMessage `json:"strategy"`
}

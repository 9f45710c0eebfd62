package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"market-insight-be/internal/entity"

	"github.com/google/uuid"
)

// GeneratedStrategy is one strategy as the external generator emits it.
// Every field is optional; formatting fills the gaps.
type GeneratedStrategy struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	TargetAudience string  `json:"targetAudience"`
	Channels       Strings `json:"channels"`
	Objectives     string  `json:"objectives"`
	Outcomes       string  `json:"outcomes"`
	Timeline       string  `json:"timeline"`
	Budget         string  `json:"budget"`
}

type GenerationOutput struct {
	Strategies []GeneratedStrategy
	Warning    string
}

// Generator is the external analysis generator. Implementations return an
// error for transport failures and for structurally invalid responses.
type Generator interface {
	Generate(ctx context.Context, dataset entity.DatasetRef) (*GenerationOutput, error)
}

// NewClientID builds a client id from a batch timestamp, the record's index
// in the batch and a random suffix, so ids stay unique across batches
// created within the same millisecond.
func NewClientID(batch time.Time, index int) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return fmt.Sprintf("%d-%d-%s", batch.UnixMilli(), index, suffix)
}

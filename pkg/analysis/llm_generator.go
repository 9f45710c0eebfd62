package analysis

import (
	"context"
	"fmt"
	"strings"

	"market-insight-be/internal/entity"
	"market-insight-be/pkg/llm"
	"market-insight-be/pkg/strategy"
)

const strategyPrompt = `You are a marketing strategist. Propose exactly 3 marketing strategies for the business dataset below.
Dataset name: %s
Dataset type: %s

Respond with a single JSON object and nothing else, in this shape:
{"strategies":[{"name":"","type":"Retention|Launch|Upsell","targetAudience":"","channels":[""],"objectives":"","outcomes":"","timeline":"","budget":""}]}`

// LLMGenerator produces strategies with a local language model.
type LLMGenerator struct {
	provider llm.LLMProvider
}

var _ strategy.Generator = (*LLMGenerator)(nil)

func NewLLMGenerator(provider llm.LLMProvider) *LLMGenerator {
	return &LLMGenerator{provider: provider}
}

func (g *LLMGenerator) Generate(ctx context.Context, dataset entity.DatasetRef) (*strategy.GenerationOutput, error) {
	dataType := dataset.Type
	if dataType == "" {
		dataType = defaultDataType
	}
	name := dataset.Name
	if name == "" {
		name = dataset.Id
	}

	answer, err := g.provider.Generate(ctx, fmt.Sprintf(strategyPrompt, name, dataType),
		llm.WithJSONOutput(), llm.WithTemperature(0.4), llm.WithMaxTokens(1200))
	if err != nil {
		return nil, unavailable("llm call failed: %v", err)
	}
	return decodeOutput([]byte(extractJSON(answer)))
}

// extractJSON strips code fences and chatter around the outermost object.
func extractJSON(answer string) string {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end < start {
		return answer
	}
	return answer[start : end+1]
}

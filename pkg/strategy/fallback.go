package strategy

import (
	"time"

	"market-insight-be/internal/entity"
)

type fallbackTemplate struct {
	name           string
	description    string
	typ            entity.StrategyType
	targetAudience string
	channels       []string
	objectives     string
	outcomes       string
	timeline       string
	budget         string
}

var fallbackTemplates = []fallbackTemplate{
	{
		name:           "Customer Retention Campaign",
		description:    "Re-engage inactive customers and increase repeat purchases.",
		typ:            entity.StrategyTypeRetention,
		targetAudience: "Existing customers who haven't purchased in 30+ days",
		channels:       []string{"Email", "SMS", "Social Media"},
		objectives:     "Re-engage inactive customers and increase repeat purchases. Focus on customers who haven't made a purchase in the last 30 days with personalized offers based on their purchase history.",
		outcomes:       "Increase customer retention rate by 15% and boost repeat purchases within 3 months.",
		timeline:       "3 months",
		budget:         "Medium investment required",
	},
	{
		name:           "New Customer Acquisition",
		description:    "Expand customer base and increase market share.",
		typ:            entity.StrategyTypeLaunch,
		targetAudience: "Potential customers in target demographic",
		channels:       []string{"Social Media Ads", "Content Marketing", "Referral Program"},
		objectives:     "Expand customer base and increase market share through targeted digital marketing campaigns and a new customer referral program.",
		outcomes:       "Acquire 20% more customers and increase brand awareness within 6 months.",
		timeline:       "6 months",
		budget:         "High investment required",
	},
	{
		name:           "Premium Product Upsell",
		description:    "Increase average order value and introduce customers to premium offerings.",
		typ:            entity.StrategyTypeUpsell,
		targetAudience: "Existing customers who regularly purchase standard products",
		channels:       []string{"Email", "In-app Notifications", "Personalized Recommendations"},
		objectives:     "Increase average order value and introduce customers to premium offerings through personalized recommendations and targeted promotions.",
		outcomes:       "Increase premium product sales by 25% and boost average order value within 4 months.",
		timeline:       "4 months",
		budget:         "Low to medium investment required",
	},
}

// FallbackGenerator produces the fixed Retention/Launch/Upsell set used
// whenever the external generator cannot deliver.
type FallbackGenerator struct {
	Now func() time.Time
}

func NewFallbackGenerator() *FallbackGenerator {
	return &FallbackGenerator{Now: time.Now}
}

// Synthesize returns three Generated-state drafts sharing one batch timestamp.
// dataset may be nil when no dataset was resolved.
func (g *FallbackGenerator) Synthesize(dataset *entity.DatasetRef) []entity.StrategyRecord {
	batch := g.Now()
	out := make([]entity.StrategyRecord, len(fallbackTemplates))
	for i, t := range fallbackTemplates {
		rec := entity.StrategyRecord{
			ClientId:       NewClientID(batch, i),
			Name:           t.name,
			Description:    t.description,
			Type:           t.typ,
			Status:         entity.StrategyStatusDraft,
			Progress:       0,
			TargetAudience: t.targetAudience,
			Channels:       append([]string(nil), t.channels...),
			Metrics:        entity.DefaultMetrics(),
			Origin:         entity.OriginFallback,
			Objectives:     t.objectives,
			Outcomes:       t.outcomes,
			Timeline:       t.timeline,
			Budget:         t.budget,
		}
		if dataset != nil {
			rec.DataSource = &entity.DatasetRef{Id: dataset.Id, Name: dataset.Name}
		}
		out[i] = rec
	}
	return out
}

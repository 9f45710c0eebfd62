// FILE: internal/mapper/strategy_mapper.go
// Mapper for StrategyRecord <-> DTO conversion
package mapper

import (
	"market-insight-be/internal/dto"
	"market-insight-be/internal/entity"
	"market-insight-be/pkg/strategy"
)

type StrategyMapper struct{}

func NewStrategyMapper() *StrategyMapper {
	return &StrategyMapper{}
}

func (m *StrategyMapper) ToResponse(rec entity.StrategyRecord) *dto.StrategyResponse {
	res := &dto.StrategyResponse{
		Id:             rec.ClientId,
		DbId:           rec.StoreId,
		Name:           rec.Name,
		Description:    rec.Description,
		Type:           string(rec.Type),
		Status:         string(rec.Status),
		Progress:       rec.Progress,
		TargetAudience: rec.TargetAudience,
		Channels:       append([]string{}, rec.Channels...),
		Metrics: dto.StrategyMetricsResponse{
			Reach:      rec.Metrics.Reach,
			Engagement: rec.Metrics.Engagement,
			Conversion: rec.Metrics.Conversion,
			Revenue:    rec.Metrics.Revenue,
		},
		AiGenerated: strategy.InAIView(rec),
		Origin:      string(rec.Origin),
		Objectives:  rec.Objectives,
		Outcomes:    rec.Outcomes,
		Timeline:    rec.Timeline,
		Budget:      rec.Budget,
		SavedAt:     rec.SavedAt,
		State:       string(rec.State()),
	}
	if rec.DataSource != nil {
		res.DataSource = &dto.DataSourceDto{Id: rec.DataSource.Id, Name: rec.DataSource.Name}
	}
	return res
}

func (m *StrategyMapper) ToResponses(records []entity.StrategyRecord) []*dto.StrategyResponse {
	out := make([]*dto.StrategyResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, m.ToResponse(rec))
	}
	return out
}

// FromCreateRequest leaves ClientId empty when the request has none.
func (m *StrategyMapper) FromCreateRequest(req *dto.CreateStrategyRequest) entity.StrategyRecord {
	typ, _ := entity.ParseStrategyType(req.Type)
	origin := entity.OriginAIGenerated
	if req.Origin == string(entity.OriginFallback) {
		origin = entity.OriginFallback
	}
	rec := entity.StrategyRecord{
		ClientId:       req.Id,
		Name:           req.Name,
		Description:    req.Description,
		Type:           typ,
		Status:         entity.StrategyStatusDraft,
		TargetAudience: req.TargetAudience,
		Channels:       append([]string(nil), req.Channels...),
		Metrics:        entity.DefaultMetrics(),
		Origin:         origin,
		Objectives:     req.Objectives,
		Outcomes:       req.Outcomes,
		Timeline:       req.Timeline,
		Budget:         req.Budget,
	}
	if req.DataSource != nil {
		rec.DataSource = &entity.DatasetRef{Id: req.DataSource.Id, Name: req.DataSource.Name}
	}
	return rec
}

func (m *StrategyMapper) ToPatch(req *dto.UpdateStrategyRequest) strategy.Patch {
	p := strategy.Patch{
		Name:           req.Name,
		Description:    req.Description,
		TargetAudience: req.TargetAudience,
		Channels:       req.Channels,
		Objectives:     req.Objectives,
		Outcomes:       req.Outcomes,
		Timeline:       req.Timeline,
		Budget:         req.Budget,
	}
	if req.Type != nil {
		if typ, ok := entity.ParseStrategyType(*req.Type); ok {
			p.Type = &typ
		}
	}
	return p
}

func (m *StrategyMapper) ToNoticeResponses(notices []entity.Notice) []*dto.NoticeResponse {
	out := make([]*dto.NoticeResponse, 0, len(notices))
	for _, n := range notices {
		out = append(out, &dto.NoticeResponse{
			Id:        n.Id,
			Kind:      string(n.Kind),
			Message:   n.Message,
			ClientId:  n.ClientId,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

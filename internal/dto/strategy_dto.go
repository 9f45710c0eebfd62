// FILE: internal/dto/strategy_dto.go
// DTOs for the AI strategies API
package dto

import "time"

type StrategyMetricsResponse struct {
	Reach      string `json:"reach"`
	Engagement string `json:"engagement"`
	Conversion string `json:"conversion"`
	Revenue    string `json:"revenue"`
}

type DataSourceDto struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type StrategyResponse struct {
	Id             string                  `json:"id"`
	DbId           string                  `json:"dbId,omitempty"`
	Name           string                  `json:"name"`
	Description    string                  `json:"description"`
	Type           string                  `json:"type"`
	Status         string                  `json:"status"`
	Progress       int                     `json:"progress"`
	TargetAudience string                  `json:"targetAudience"`
	Channels       []string                `json:"channels"`
	Metrics        StrategyMetricsResponse `json:"metrics"`
	AiGenerated    bool                    `json:"aiGenerated"`
	Origin         string                  `json:"origin"`
	Objectives     string                  `json:"objectives"`
	Outcomes       string                  `json:"outcomes"`
	Timeline       string                  `json:"timeline"`
	Budget         string                  `json:"budget"`
	DataSource     *DataSourceDto          `json:"dataSource,omitempty"`
	SavedAt        *time.Time              `json:"savedAt,omitempty"`
	State          string                  `json:"state"`
}

type GenerateStrategiesRequest struct {
	DataId   string `json:"dataId" validate:"required"`
	DataName string `json:"dataName"`
	DataType string `json:"dataType"`
}

type GenerateStrategiesResponse struct {
	Strategies    []*StrategyResponse `json:"strategies"`
	UsingFallback bool                `json:"usingFallback"`
	Warning       string              `json:"warning,omitempty"`
}

type CreateStrategyRequest struct {
	Id             string         `json:"id"` // client id, generated when empty
	Name           string         `json:"name" validate:"required"`
	Description    string         `json:"description"`
	Type           string         `json:"type" validate:"required,oneof=Retention Launch Upsell"`
	TargetAudience string         `json:"targetAudience"`
	Channels       []string       `json:"channels"`
	Objectives     string         `json:"objectives"`
	Outcomes       string         `json:"outcomes"`
	Timeline       string         `json:"timeline"`
	Budget         string         `json:"budget"`
	Origin         string         `json:"origin" validate:"omitempty,oneof=AIGenerated Fallback"`
	DataSource     *DataSourceDto `json:"dataSource"`
}

// UpdateStrategyRequest is shared by save-as-draft (PUT) and local edit (PATCH).
type UpdateStrategyRequest struct {
	Name           *string  `json:"name,omitempty" validate:"omitempty,min=1"`
	Description    *string  `json:"description,omitempty"`
	Type           *string  `json:"type,omitempty" validate:"omitempty,oneof=Retention Launch Upsell"`
	TargetAudience *string  `json:"targetAudience,omitempty"`
	Channels       []string `json:"channels,omitempty"`
	Objectives     *string  `json:"objectives,omitempty"`
	Outcomes       *string  `json:"outcomes,omitempty"`
	Timeline       *string  `json:"timeline,omitempty"`
	Budget         *string  `json:"budget,omitempty"`
}

type NoticeResponse struct {
	Id        string    `json:"id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	ClientId  string    `json:"clientId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

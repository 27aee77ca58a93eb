package models

// PlanRoutesRequest asks for scored route options without starting a session.
type PlanRoutesRequest struct {
	Source       Location `json:"source"`
	Destination  Location `json:"destination"`
	Alternatives int      `json:"alternatives,omitempty" validate:"gte=0,lte=5"`
}

// CommunityReportRequest submits a crowd safety report.
type CommunityReportRequest struct {
	ReporterID         string   `json:"reporterId" validate:"required,max=64"`
	ReporterTrustScore float64  `json:"reporterTrustScore" validate:"gte=0,lte=1"`
	Location           Location `json:"location"`
	Type               string   `json:"type" validate:"required,oneof=unsafe_area safe_area incident suspicious_activity"`
	Description        string   `json:"description" validate:"max=500"`
	VerificationCount  int      `json:"verificationCount,omitempty" validate:"gte=0"`
	IsVerified         bool     `json:"isVerified,omitempty"`
}

// ListResponse wraps a list payload.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewListResponse wraps items, never encoding a null list.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

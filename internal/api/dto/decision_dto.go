package dto

type ListDecisionsRequest struct {
	Campaign string `form:"campaign"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type GetDecisionRequest struct {
	Campaign string `form:"campaign"`
}

type ListDecisionsResponse struct {
	Decisions  []DecisionDTO `json:"decisions"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type DecisionDTO struct {
	PhotoID        string `json:"photo_id"`
	Campaign       string `json:"campaign"`
	Status         string `json:"status"`
	Verified       bool   `json:"verified"`
	PhotoURL       string `json:"photo_url"`
	PhotoCreatedAt string `json:"photo_created_at"`
	ProcessedAt    string `json:"processed_at"`
}

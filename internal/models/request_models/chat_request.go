package request_models

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required,min=1,max=2000"`
}

type EditRequest struct {
	Command string `json:"command" binding:"required,min=1,max=1000"`
}

type ExplainRequest struct {
	Question string `json:"question" binding:"required,min=1,max=1000"`
}

type ExportRequest struct {
	Email string `json:"email" binding:"required,email"`
}

package response_models

import (
	"wayfarer/internal/domain"
	"wayfarer/pkg/utils"
)

// Conversation statuses.
const (
	StatusSuccess              = "success"
	StatusClarifying           = "clarifying"
	StatusConfirmationRequired = "confirmation_required"
	StatusError                = "error"
)

type ChatResponse struct {
	SessionID  string             `json:"session_id"`
	Status     string             `json:"status"`
	Message    string             `json:"message"`
	State      domain.State       `json:"state"`
	Kind       utils.ErrorKind    `json:"kind,omitempty"`
	Intent     domain.Intent      `json:"intent,omitempty"`
	Itinerary  *domain.Itinerary  `json:"itinerary,omitempty"`
	Sources    []domain.Citation  `json:"sources,omitempty"`
	Evaluation *domain.Evaluation `json:"evaluation,omitempty"`
}

type EditResponse struct {
	SessionID       string             `json:"session_id"`
	Status          string             `json:"status"`
	Message         string             `json:"message,omitempty"`
	EditType        domain.EditType    `json:"edit_type,omitempty"`
	ModifiedSection []string           `json:"modified_section"`
	Itinerary       *domain.Itinerary  `json:"itinerary,omitempty"`
	Evaluation      *domain.Evaluation `json:"evaluation,omitempty"`
}

type ExplainResponse struct {
	SessionID   string            `json:"session_id"`
	Status      string            `json:"status"`
	Explanation string            `json:"explanation"`
	Sources     []domain.Citation `json:"sources"`
}

type ExportResponse struct {
	SessionID    string `json:"session_id"`
	Status       string `json:"status"`
	EmailSent    *bool  `json:"email_sent"`
	EmailAddress string `json:"email_address"`
}

type SessionResponse struct {
	SessionID          string             `json:"session_id"`
	State              domain.State       `json:"state"`
	Preferences        domain.Preferences `json:"preferences"`
	Itinerary          *domain.Itinerary  `json:"itinerary,omitempty"`
	History            []domain.Turn      `json:"history"`
	Sources            []domain.Citation  `json:"sources"`
	ClarificationCount int                `json:"clarification_count"`
}

package domain

import "time"

// State is the conversation state machine position.
type State string

const (
	StateCollecting State = "COLLECTING"
	StateConfirming State = "CONFIRMING"
	StatePlanned    State = "PLANNED"
	StateReset      State = "RESET"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is the per-conversation state. Only the session store hands out
// copies of it; callers never hold the stored value.
type Session struct {
	ID                 string      `json:"id"`
	State              State       `json:"state"`
	Preferences        Preferences `json:"preferences"`
	Itinerary          *Itinerary  `json:"itinerary,omitempty"`
	History            []Turn      `json:"history"`
	ClarificationCount int         `json:"clarification_count"`
	LastQuestion       Field       `json:"last_question,omitempty"`
	Sources            []Citation  `json:"sources,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	LastAccess         time.Time   `json:"last_access"`
}

func NewSession(id string, now time.Time) Session {
	return Session{
		ID:         id,
		State:      StateCollecting,
		CreatedAt:  now,
		LastAccess: now,
	}
}

func (s *Session) Append(role Role, text string, at time.Time) {
	s.History = append(s.History, Turn{Role: role, Text: text, At: at})
}

// Context summarises the session for the intent classifier.
func (s Session) Context() ConversationContext {
	ctx := ConversationContext{State: s.State, LastQuestion: s.LastQuestion}
	if s.Itinerary != nil {
		ctx.HasItinerary = true
		ctx.Days = len(s.Itinerary.DayPlans)
	}
	return ctx
}

func (s Session) Clone() Session {
	out := s
	out.Preferences = s.Preferences.Clone()
	out.History = append([]Turn(nil), s.History...)
	out.Sources = append([]Citation(nil), s.Sources...)
	if s.Itinerary != nil {
		it := s.Itinerary.Clone()
		out.Itinerary = &it
	}
	return out
}

package api

import "time"

// Envelope is the standard response format shared with the ml worker:
// {status: success|error, data?, message?, error?, timestamp}.
type Envelope struct {
	Status    string    `json:"status" example:"success"`
	Message   string    `json:"message,omitempty" example:"Document deleted successfully"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type DocumentData struct {
	Id               string    `json:"id"`
	DivisionId       string    `json:"division_id,omitempty"`
	OriginalFilename string    `json:"original_filename"`
	FileType         string    `json:"file_type"`
	Status           string    `json:"status"`
	IsActive         bool      `json:"is_active"`
	CreatedTime      time.Time `json:"created_time"`
	UpdatedTime      time.Time `json:"updated_time"`
}

// requests---------------------

type ToggleActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type WebhookRequest struct {
	DocumentId string         `json:"documentId" validate:"required"`
	Status     string         `json:"status" validate:"required"`
	Message    string         `json:"message,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type ChatRequest struct {
	DivisionId     string `json:"division_id" validate:"required"`
	Query          string `json:"query" validate:"required,max=2000"`
	ConversationId string `json:"conversation_id,omitempty"`
	Title          string `json:"title,omitempty"`
	UserId         string `json:"user_id,omitempty"`
}

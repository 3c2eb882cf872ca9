// ABOUTME: Wire types for the managed messaging service client
// ABOUTME: Conversation entries, pre-chat fields, and remote configuration records

package messaging

import (
	"encoding/json"
	"time"
)

// EntryType identifies the kind of a conversation entry.
type EntryType string

// Entry types delivered by the service.
const (
	EntryTypeMessage    EntryType = "message"
	EntryTypeChoice     EntryType = "choice"
	EntryTypeAttachment EntryType = "attachment"
	EntryTypeEvent      EntryType = "event"
)

// ConversationEntry is one message or event within a conversation. The
// service owns its semantics; consumers republish entries without
// interpreting Payload.
type ConversationEntry struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Sender         string          `json:"sender"`
	SenderRole     string          `json:"sender_role"` // "user", "agent", "system"
	Type           EntryType       `json:"type"`
	Timestamp      time.Time       `json:"timestamp"`
	Text           string          `json:"text,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// Choice is one selectable option offered within a choice entry.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// PreChatField is a single form field collected before a conversation
// starts. Required fields must carry a Value when submitted.
type PreChatField struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Value    string `json:"value,omitempty"`
}

// PreChatForm groups the pre-chat fields for one deployment form.
type PreChatForm struct {
	Name   string         `json:"name"`
	Fields []PreChatField `json:"fields"`
}

// RemoteConfiguration is the deployment configuration fetched from the
// service after session start.
type RemoteConfiguration struct {
	DeploymentName string        `json:"deployment_name"`
	PreChatForms   []PreChatForm `json:"pre_chat_forms"`
	TemplatedURLs  []string      `json:"templated_urls,omitempty"`
}

// ABOUTME: Conversation-scoped client for send, fetch, and pre-chat submission
// ABOUTME: All operations are direct pass-throughs; the service owns delivery guarantees

package messaging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ConversationClient operates on a single conversation. Derive one from a
// CoreClient via Conversation; it shares the core client's session.
type ConversationClient struct {
	core *CoreClient
	id   uuid.UUID
}

// ID returns the conversation identifier this client is scoped to.
func (cc *ConversationClient) ID() uuid.UUID {
	return cc.id
}

// textMessage is the JSON body for text and choice-reply sends.
type textMessage struct {
	Type     EntryType `json:"type"`
	Text     string    `json:"text,omitempty"`
	ChoiceID string    `json:"choice_id,omitempty"`
}

// entriesResponse is the JSON body returned by the entries endpoint.
type entriesResponse struct {
	Entries []ConversationEntry `json:"entries"`
}

// preChatSubmission is the JSON body for pre-chat form submission.
type preChatSubmission struct {
	Fields                     []PreChatField `json:"fields"`
	CreateConversationOnSubmit bool           `json:"create_conversation_on_submit"`
}

// SendText sends a plain text message.
func (cc *ConversationClient) SendText(ctx context.Context, text string) error {
	msg := textMessage{Type: EntryTypeMessage, Text: text}
	return cc.core.do(ctx, http.MethodPost, cc.path("messages"), msg, nil)
}

// SendChoice replies to a choice entry with the selected option.
func (cc *ConversationClient) SendChoice(ctx context.Context, choiceID string) error {
	msg := textMessage{Type: EntryTypeChoice, ChoiceID: choiceID}
	return cc.core.do(ctx, http.MethodPost, cc.path("messages"), msg, nil)
}

// SendImage uploads an image attachment.
func (cc *ConversationClient) SendImage(ctx context.Context, filename string, data []byte) error {
	return cc.sendAttachment(ctx, "image", filename, data)
}

// SendPDF uploads a PDF attachment. The filename must carry a .pdf extension.
func (cc *ConversationClient) SendPDF(ctx context.Context, filename string, data []byte) error {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return fmt.Errorf("not a PDF file: %q", filename)
	}
	return cc.sendAttachment(ctx, "pdf", filename, data)
}

// Entries fetches the full entry history for this conversation. The service
// returns entries newest-first; callers needing chronological order must
// reverse the slice.
func (cc *ConversationClient) Entries(ctx context.Context) ([]ConversationEntry, error) {
	var resp entriesResponse
	if err := cc.core.do(ctx, http.MethodGet, cc.path("entries"), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching entries: %w", err)
	}
	return resp.Entries, nil
}

// SubmitPreChat submits the pre-chat form fields. With
// createConversationOnSubmit the service opens the conversation as part of
// the submission.
func (cc *ConversationClient) SubmitPreChat(ctx context.Context, fields []PreChatField, createConversationOnSubmit bool) error {
	sub := preChatSubmission{
		Fields:                     fields,
		CreateConversationOnSubmit: createConversationOnSubmit,
	}
	if err := cc.core.do(ctx, http.MethodPost, cc.path("prechat"), sub, nil); err != nil {
		return fmt.Errorf("submitting pre-chat: %w", err)
	}
	return nil
}

// sendAttachment uploads a file as a multipart form.
func (cc *ConversationClient) sendAttachment(ctx context.Context, kind, filename string, data []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("kind", kind); err != nil {
		return fmt.Errorf("writing attachment kind: %w", err)
	}
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return fmt.Errorf("creating attachment part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("writing attachment data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalizing attachment form: %w", err)
	}

	req, err := cc.core.newRequest(ctx, http.MethodPost, cc.path("attachments"), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := cc.core.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("uploading attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return serviceError(resp)
	}
	io.Copy(io.Discard, resp.Body)

	return nil
}

// path builds a conversation-scoped API path.
func (cc *ConversationClient) path(suffix string) string {
	return fmt.Sprintf("/api/v1/conversations/%s/%s", cc.id, suffix)
}

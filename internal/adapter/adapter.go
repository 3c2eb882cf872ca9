// ABOUTME: Presentation adapter binding the messaging client to the conversation feed
// ABOUTME: Owns client lifecycle, pre-chat submission, message forwarding, and reset

package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/parley/internal/auth"
	"github.com/2389/parley/internal/config"
	"github.com/2389/parley/internal/dedupe"
	"github.com/2389/parley/internal/feed"
	"github.com/2389/parley/internal/messaging"
	"github.com/2389/parley/internal/session"
)

// prechatPlaceholder stands in for real user input when required pre-chat
// fields are submitted without a form UI.
const prechatPlaceholder = "Not provided"

// Dedupe window for entries seen by both a history fetch and the live stream.
const (
	seenTTL     = 5 * time.Minute
	seenMaxSize = 1024
)

// Core is what the adapter needs from the messaging client.
type Core interface {
	Start(ctx context.Context) error
	RemoteConfiguration(ctx context.Context) (*messaging.RemoteConfiguration, error)
	Conversation(id uuid.UUID) Conversation
}

// Conversation is what the adapter needs from a conversation-scoped client.
type Conversation interface {
	SendText(ctx context.Context, text string) error
	SendChoice(ctx context.Context, choiceID string) error
	SendImage(ctx context.Context, filename string, data []byte) error
	SendPDF(ctx context.Context, filename string, data []byte) error
	Entries(ctx context.Context) ([]messaging.ConversationEntry, error)
	SubmitPreChat(ctx context.Context, fields []messaging.PreChatField, createConversationOnSubmit bool) error
	StreamEntries(ctx context.Context) (<-chan messaging.ConversationEntry, error)
}

// ClientFactory constructs a Core for the given deployment. Overridable
// for tests.
type ClientFactory func(desc *config.Descriptor, verificationRequired bool, handlers messaging.Handlers, logger *slog.Logger) (Core, error)

// defaultFactory builds a real messaging client.
func defaultFactory(desc *config.Descriptor, verificationRequired bool, handlers messaging.Handlers, logger *slog.Logger) (Core, error) {
	c, err := messaging.NewCoreClient(desc, verificationRequired, handlers, logger)
	if err != nil {
		return nil, err
	}
	return coreClient{c}, nil
}

// coreClient adapts *messaging.CoreClient to the Core interface.
type coreClient struct {
	*messaging.CoreClient
}

func (c coreClient) Conversation(id uuid.UUID) Conversation {
	return c.CoreClient.Conversation(id)
}

// Adapter binds the messaging client to the UI-facing conversation feed.
// It republishes fetched entries in chronological order and forwards sends
// verbatim; all delivery guarantees live inside the messaging service.
//
// Adapter methods are intended to be called from the UI goroutine. The only
// background work the adapter spawns is the one-shot pre-chat submission and
// the optional live stream consumer, both of which touch only the feed and
// the dedupe cache, which are safe for concurrent use.
type Adapter struct {
	cfg     *config.Config
	ids     *session.IdentifierStore
	feed    *feed.Feed
	creds   *auth.CredentialProvider
	factory ClientFactory
	seen    *dedupe.Cache
	logger  *slog.Logger

	core Core
	conv Conversation
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithClientFactory overrides how the messaging client is constructed.
func WithClientFactory(factory ClientFactory) Option {
	return func(a *Adapter) { a.factory = factory }
}

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger.With("component", "adapter") }
}

// New creates an adapter over the given identifier store and feed. When the
// configuration requires user verification, a credential provider is built
// from the configured secret.
func New(cfg *config.Config, ids *session.IdentifierStore, fd *feed.Feed, opts ...Option) *Adapter {
	a := &Adapter{
		cfg:     cfg,
		ids:     ids,
		feed:    fd,
		factory: defaultFactory,
		seen:    dedupe.New(seenTTL, seenMaxSize),
		logger:  slog.Default().With("component", "adapter"),
	}

	if cfg.Verification.Required && cfg.Verification.Secret != "" {
		a.creds = auth.NewCredentialProvider([]byte(cfg.Verification.Secret), 0)
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// CreateClient loads the service descriptor, constructs a single core client
// with all capability handlers registered, starts its session, and derives a
// conversation client for the persisted identifier. A missing or malformed
// descriptor logs and returns the error with no client constructed; later
// calls on the adapter then no-op.
func (a *Adapter) CreateClient(ctx context.Context) error {
	desc, err := config.LoadDescriptor(a.cfg.Descriptor.Path)
	if err != nil {
		a.logger.Error("service descriptor unavailable", "path", a.cfg.Descriptor.Path, "error", err)
		return err
	}

	conversationID, err := a.ids.GetOrCreate(ctx)
	if err != nil {
		return fmt.Errorf("resolving conversation id: %w", err)
	}

	core, err := a.factory(desc, a.cfg.Verification.Required, a.handlers(conversationID), a.logger)
	if err != nil {
		a.logger.Error("constructing messaging client failed", "error", err)
		return err
	}

	if err := core.Start(ctx); err != nil {
		a.logger.Error("starting messaging session failed", "error", err)
		return err
	}

	a.core = core
	a.conv = core.Conversation(conversationID)

	a.logger.Info("messaging client ready", "conversation_id", conversationID)

	// Pre-chat submission runs detached: it must finish even if the caller's
	// context ends once CreateClient returns.
	go a.submitPreChat(context.WithoutCancel(ctx))

	return nil
}

// handlers builds the per-capability callbacks registered with the core
// client. Each handler covers exactly one capability.
func (a *Adapter) handlers(conversationID uuid.UUID) messaging.Handlers {
	return messaging.Handlers{
		PreChat: func(form messaging.PreChatForm) {
			a.logger.Debug("pre-chat form available", "form", form.Name, "fields", len(form.Fields))
		},
		TemplatedURL: func(name string) (string, bool) {
			// No substitution values available without a form UI; leave
			// placeholders intact.
			a.logger.Debug("templated URL parameter requested", "name", name)
			return "", false
		},
		UserVerification: func(ctx context.Context) (string, error) {
			if a.creds == nil {
				return "", fmt.Errorf("verification required but no credential provider configured")
			}
			return a.creds.Token(conversationID.String())
		},
		Error: func(err error) {
			a.logger.Error("messaging client error", "error", err)
		},
	}
}

// submitPreChat fetches the remote configuration, fills required fields of
// the first pre-chat form with a placeholder, and submits with conversation
// creation enabled. Absent configuration or an empty field list is a no-op;
// nothing is surfaced to the UI.
func (a *Adapter) submitPreChat(ctx context.Context) {
	rc, err := a.core.RemoteConfiguration(ctx)
	if err != nil {
		a.logger.Debug("skipping pre-chat submission: remote configuration unavailable", "error", err)
		return
	}

	if len(rc.PreChatForms) == 0 {
		a.logger.Debug("skipping pre-chat submission: no forms configured")
		return
	}

	form := rc.PreChatForms[0]
	if len(form.Fields) == 0 {
		a.logger.Debug("skipping pre-chat submission: form has no fields", "form", form.Name)
		return
	}

	fields := make([]messaging.PreChatField, len(form.Fields))
	copy(fields, form.Fields)
	for i := range fields {
		if fields[i].Required && fields[i].Value == "" {
			fields[i].Value = prechatPlaceholder
		}
	}

	if err := a.conv.SubmitPreChat(ctx, fields, true); err != nil {
		a.logger.Debug("pre-chat submission failed", "form", form.Name, "error", err)
		return
	}

	a.logger.Debug("pre-chat submitted", "form", form.Name, "fields", len(fields))
}

// FetchAndUpdateConversation requests the full entry history and replaces
// the feed contents with the entries in chronological order. The service
// returns newest-first; the adapter reverses before publishing.
func (a *Adapter) FetchAndUpdateConversation(ctx context.Context) error {
	if a.conv == nil {
		a.logger.Debug("fetch ignored: no client")
		return nil
	}

	entries, err := a.conv.Entries(ctx)
	if err != nil {
		a.logger.Error("fetching conversation failed", "error", err)
		return err
	}

	chronological := make([]messaging.ConversationEntry, len(entries))
	for i, e := range entries {
		chronological[len(entries)-1-i] = e
		a.seen.Mark(e.ID)
	}

	a.feed.Replace(chronological)
	return nil
}

// SendTextMessage forwards a text message to the conversation client.
func (a *Adapter) SendTextMessage(ctx context.Context, text string) error {
	if a.conv == nil {
		a.logger.Debug("send ignored: no client")
		return nil
	}
	return a.conv.SendText(ctx, text)
}

// SendImageMessage forwards an image attachment to the conversation client.
func (a *Adapter) SendImageMessage(ctx context.Context, filename string, data []byte) error {
	if a.conv == nil {
		a.logger.Debug("send ignored: no client")
		return nil
	}
	return a.conv.SendImage(ctx, filename, data)
}

// SendPDFMessage forwards a PDF attachment to the conversation client.
func (a *Adapter) SendPDFMessage(ctx context.Context, filename string, data []byte) error {
	if a.conv == nil {
		a.logger.Debug("send ignored: no client")
		return nil
	}
	return a.conv.SendPDF(ctx, filename, data)
}

// SendChoiceReply forwards a choice selection to the conversation client.
func (a *Adapter) SendChoiceReply(ctx context.Context, choiceID string) error {
	if a.conv == nil {
		a.logger.Debug("send ignored: no client")
		return nil
	}
	return a.conv.SendChoice(ctx, choiceID)
}

// AttachLiveStream opens the live entry stream and appends new entries to
// the feed as they arrive. Entries already published by an overlapping
// history fetch are suppressed. The stream lives until ctx is cancelled.
func (a *Adapter) AttachLiveStream(ctx context.Context) error {
	if a.conv == nil {
		a.logger.Debug("stream ignored: no client")
		return nil
	}

	ch, err := a.conv.StreamEntries(ctx)
	if err != nil {
		return fmt.Errorf("attaching live stream: %w", err)
	}

	go func() {
		for entry := range ch {
			if entry.ID != "" && a.seen.CheckAndMark(entry.ID) {
				continue
			}
			a.feed.Append(entry)
		}
		a.logger.Debug("live stream ended")
	}()

	return nil
}

// ResetConversation overwrites the persisted identifier with a new UUID,
// clears the feed, and re-derives the conversation client from the existing
// core client. The prior conversation's entries are abandoned, not deleted.
func (a *Adapter) ResetConversation(ctx context.Context) error {
	id, err := a.ids.Reset(ctx)
	if err != nil {
		return fmt.Errorf("resetting conversation: %w", err)
	}

	a.feed.Clear()

	if a.core != nil {
		a.conv = a.core.Conversation(id)
	}

	a.logger.Info("conversation reset", "conversation_id", id)
	return nil
}

// Close releases adapter resources. The feed is owned by the caller and is
// not closed here.
func (a *Adapter) Close() {
	a.seen.Close()
}

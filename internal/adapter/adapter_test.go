// ABOUTME: Tests for the presentation adapter
// ABOUTME: Covers client lifecycle, entry reordering, pass-through sends, pre-chat, and reset

package adapter

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/parley/internal/auth"
	"github.com/2389/parley/internal/config"
	"github.com/2389/parley/internal/feed"
	"github.com/2389/parley/internal/messaging"
	"github.com/2389/parley/internal/session"
	"github.com/2389/parley/internal/store"
)

// fakeConversation records pass-through calls from the adapter.
type fakeConversation struct {
	id         uuid.UUID
	entries    []messaging.ConversationEntry
	entriesErr error

	sentTexts   []string
	sentChoices []string
	sentImages  []string
	sentPDFs    []string

	prechatFields []messaging.PreChatField
	prechatCreate bool
	prechatDone   chan struct{}

	streamCh chan messaging.ConversationEntry
}

func (f *fakeConversation) SendText(_ context.Context, text string) error {
	f.sentTexts = append(f.sentTexts, text)
	return nil
}

func (f *fakeConversation) SendChoice(_ context.Context, choiceID string) error {
	f.sentChoices = append(f.sentChoices, choiceID)
	return nil
}

func (f *fakeConversation) SendImage(_ context.Context, filename string, _ []byte) error {
	f.sentImages = append(f.sentImages, filename)
	return nil
}

func (f *fakeConversation) SendPDF(_ context.Context, filename string, _ []byte) error {
	f.sentPDFs = append(f.sentPDFs, filename)
	return nil
}

func (f *fakeConversation) Entries(context.Context) ([]messaging.ConversationEntry, error) {
	return f.entries, f.entriesErr
}

func (f *fakeConversation) SubmitPreChat(_ context.Context, fields []messaging.PreChatField, create bool) error {
	f.prechatFields = fields
	f.prechatCreate = create
	if f.prechatDone != nil {
		close(f.prechatDone)
	}
	return nil
}

func (f *fakeConversation) StreamEntries(context.Context) (<-chan messaging.ConversationEntry, error) {
	return f.streamCh, nil
}

// fakeCore hands out fakeConversations and records derivations.
type fakeCore struct {
	startErr error
	rc       *messaging.RemoteConfiguration
	rcErr    error
	conv     *fakeConversation
	derived  []uuid.UUID
}

func (f *fakeCore) Start(context.Context) error { return f.startErr }

func (f *fakeCore) RemoteConfiguration(context.Context) (*messaging.RemoteConfiguration, error) {
	return f.rc, f.rcErr
}

func (f *fakeCore) Conversation(id uuid.UUID) Conversation {
	f.derived = append(f.derived, id)
	f.conv.id = id
	return f.conv
}

// testHarness wires an adapter around fakes and a real identifier store.
type testHarness struct {
	adapter  *Adapter
	feed     *feed.Feed
	core     *fakeCore
	conv     *fakeConversation
	ids      *session.IdentifierStore
	prefs    store.Preferences
	built    int
	handlers messaging.Handlers
}

func writeDescriptor(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "configFile.json")
	content := `{
		"organization_id": "org-1",
		"deployment_name": "Parley_Test",
		"service_url": "https://chat.example.test"
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newHarness(t *testing.T, cfg *config.Config) *testHarness {
	t.Helper()

	prefs, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "parley.db"))
	require.NoError(t, err)
	t.Cleanup(func() { prefs.Close() })

	h := &testHarness{
		feed:  feed.New(nil),
		prefs: prefs,
		ids:   session.NewIdentifierStore(prefs, nil),
		conv:  &fakeConversation{},
	}
	h.core = &fakeCore{
		rc:   &messaging.RemoteConfiguration{},
		conv: h.conv,
	}

	factory := func(_ *config.Descriptor, _ bool, handlers messaging.Handlers, _ *slog.Logger) (Core, error) {
		h.built++
		h.handlers = handlers
		return h.core, nil
	}

	h.adapter = New(cfg, h.ids, h.feed, WithClientFactory(factory))
	t.Cleanup(h.adapter.Close)
	t.Cleanup(h.feed.Close)

	return h
}

func testConfig(t *testing.T, descriptorPath string) *config.Config {
	t.Helper()
	return &config.Config{
		Descriptor: config.DescriptorConfig{Path: descriptorPath},
		Database:   config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "db")},
	}
}

func TestCreateClient_Success(t *testing.T) {
	cfg := testConfig(t, writeDescriptor(t))
	h := newHarness(t, cfg)

	require.NoError(t, h.adapter.CreateClient(context.Background()))

	assert.Equal(t, 1, h.built, "exactly one core client per CreateClient call")
	require.Len(t, h.core.derived, 1)

	// The conversation client uses the persisted identifier
	id, err := h.ids.GetOrCreate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, h.core.derived[0])
}

func TestCreateClient_MissingDescriptor(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "absent.json"))
	h := newHarness(t, cfg)

	err := h.adapter.CreateClient(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, h.built, "no client may be constructed without a descriptor")

	// Subsequent calls silently no-op on the nil client
	assert.NoError(t, h.adapter.FetchAndUpdateConversation(context.Background()))
	assert.NoError(t, h.adapter.SendTextMessage(context.Background(), "ignored"))
	assert.Equal(t, 0, h.feed.Len())
	assert.Empty(t, h.conv.sentTexts)
}

func TestCreateClient_SubmitsPreChatWithPlaceholders(t *testing.T) {
	cfg := testConfig(t, writeDescriptor(t))
	h := newHarness(t, cfg)

	h.conv.prechatDone = make(chan struct{})
	h.core.rc = &messaging.RemoteConfiguration{
		PreChatForms: []messaging.PreChatForm{
			{Name: "default", Fields: []messaging.PreChatField{
				{Name: "name", Required: true},
				{Name: "topic", Required: false},
				{Name: "origin", Required: true, Value: "web"},
			}},
		},
	}

	require.NoError(t, h.adapter.CreateClient(context.Background()))

	select {
	case <-h.conv.prechatDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pre-chat submission")
	}

	assert.True(t, h.conv.prechatCreate, "submission must create the conversation")
	require.Len(t, h.conv.prechatFields, 3)
	assert.Equal(t, prechatPlaceholder, h.conv.prechatFields[0].Value, "empty required field gets placeholder")
	assert.Empty(t, h.conv.prechatFields[1].Value, "optional field stays empty")
	assert.Equal(t, "web", h.conv.prechatFields[2].Value, "pre-filled field is preserved")
}

func TestCreateClient_PreChatSkippedWhenConfigUnavailable(t *testing.T) {
	cfg := testConfig(t, writeDescriptor(t))
	h := newHarness(t, cfg)

	h.core.rc = nil
	h.core.rcErr = context.DeadlineExceeded

	require.NoError(t, h.adapter.CreateClient(context.Background()))

	// Give the detached goroutine a moment; nothing must have been submitted.
	time.Sleep(50 * time.Millisecond)
	assert.Nil(t, h.conv.prechatFields)
}

func TestFetchAndUpdateConversation_ReversesToChronological(t *testing.T) {
	cfg := testConfig(t, writeDescriptor(t))
	h := newHarness(t, cfg)
	require.NoError(t, h.adapter.CreateClient(context.Background()))

	// Service returns newest-first
	h.conv.entries = []messaging.ConversationEntry{
		{ID: "e3", Text: "third"},
		{ID: "e2", Text: "second"},
		{ID: "e1", Text: "first"},
	}

	require.NoError(t, h.adapter.FetchAndUpdateConversation(context.Background()))

	snapshot := h.feed.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "e1", snapshot[0].ID)
	assert.Equal(t, "e2", snapshot[1].ID)
	assert.Equal(t, "e3", snapshot[2].ID)
}

func TestFetchAndUpdateConversation_Error(t *testing.T) {
	cfg := testConfig(t, writeDescriptor(t))
	h := newHarness(t, cfg)
	require.NoError(t, h.adapter.CreateClient(context.Background()))

	h.conv.entriesErr = context.DeadlineExceeded

	err := h.adapter.FetchAndUpdateConversation(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, h.feed.Len(), "feed must be untouched on fetch failure")
}

func TestSends_PassThrough(t *testing.T) {
	cfg := testConfig(t, writeDescriptor(t))
	h := newHarness(t, cfg)
	require.NoError(t, h.adapter.CreateClient(context.Background()))
	ctx := context.Background()

	require.NoError(t, h.adapter.SendTextMessage(ctx, "hello"))
	require.NoError(t, h.adapter.SendChoiceReply(ctx, "opt-1"))
	require.NoError(t, h.adapter.SendImageMessage(ctx, "cat.png", []byte("img")))
	require.NoError(t, h.adapter.SendPDFMessage(ctx, "doc.pdf", []byte("pdf")))

	assert.Equal(t, []string{"hello"}, h.conv.sentTexts)
	assert.Equal(t, []string{"opt-1"}, h.conv.sentChoices)
	assert.Equal(t, []string{"cat.png"}, h.conv.sentImages)
	assert.Equal(t, []string{"doc.pdf"}, h.conv.sentPDFs)
}

func TestResetConversation(t *testing.T) {
	cfg := testConfig(t, writeDescriptor(t))
	h := newHarness(t, cfg)
	ctx := context.Background()
	require.NoError(t, h.adapter.CreateClient(ctx))

	h.conv.entries = []messaging.ConversationEntry{{ID: "e1"}}
	require.NoError(t, h.adapter.FetchAndUpdateConversation(ctx))
	require.Equal(t, 1, h.feed.Len())

	before := h.core.derived[0]
	require.NoError(t, h.adapter.ResetConversation(ctx))

	assert.Equal(t, 0, h.feed.Len(), "feed is cleared on reset")
	require.Len(t, h.core.derived, 2, "a new conversation client is derived")
	assert.NotEqual(t, before, h.core.derived[1])

	// The new identifier is the persisted one
	id, err := h.ids.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, h.core.derived[1])
}

func TestResetConversation_WithoutClient(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "absent.json"))
	h := newHarness(t, cfg)
	ctx := context.Background()

	before, err := h.ids.GetOrCreate(ctx)
	require.NoError(t, err)

	require.NoError(t, h.adapter.ResetConversation(ctx))

	after, err := h.ids.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before, after, "identifier changes even without a client")
}

func TestAttachLiveStream_AppendsAndDeduplicates(t *testing.T) {
	cfg := testConfig(t, writeDescriptor(t))
	h := newHarness(t, cfg)
	ctx := context.Background()
	require.NoError(t, h.adapter.CreateClient(ctx))

	// e1 arrives via history fetch first
	h.conv.entries = []messaging.ConversationEntry{{ID: "e1"}}
	require.NoError(t, h.adapter.FetchAndUpdateConversation(ctx))

	h.conv.streamCh = make(chan messaging.ConversationEntry, 4)
	require.NoError(t, h.adapter.AttachLiveStream(ctx))

	h.conv.streamCh <- messaging.ConversationEntry{ID: "e1"} // duplicate of fetch
	h.conv.streamCh <- messaging.ConversationEntry{ID: "e2"}
	close(h.conv.streamCh)

	require.Eventually(t, func() bool {
		return h.feed.Len() == 2
	}, 2*time.Second, 10*time.Millisecond, "only the new entry is appended")

	snapshot := h.feed.Snapshot()
	assert.Equal(t, "e1", snapshot[0].ID)
	assert.Equal(t, "e2", snapshot[1].ID)
}

func TestVerificationHandler_MintsValidCredential(t *testing.T) {
	cfg := testConfig(t, writeDescriptor(t))
	cfg.Verification = config.VerificationConfig{Required: true, Secret: "verify-secret"}
	h := newHarness(t, cfg)
	ctx := context.Background()

	require.NoError(t, h.adapter.CreateClient(ctx))
	require.NotNil(t, h.handlers.UserVerification)

	token, err := h.handlers.UserVerification(ctx)
	require.NoError(t, err)

	verifier := auth.NewCredentialProvider([]byte("verify-secret"), time.Minute)
	subject, err := verifier.Verify(token)
	require.NoError(t, err)

	id, err := h.ids.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Equal(t, id.String(), subject)
}

func TestVerificationHandler_WithoutProvider(t *testing.T) {
	cfg := testConfig(t, writeDescriptor(t))
	cfg.Verification = config.VerificationConfig{Required: true}
	h := newHarness(t, cfg)

	require.NoError(t, h.adapter.CreateClient(context.Background()))
	require.NotNil(t, h.handlers.UserVerification)

	_, err := h.handlers.UserVerification(context.Background())
	assert.Error(t, err)
}

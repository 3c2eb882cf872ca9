// ABOUTME: Observable ordered sequence of conversation entries for the UI layer
// ABOUTME: Serializes mutations and fans out snapshots to all subscribers

package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/parley/internal/messaging"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 16

// Feed holds the ordered conversation entries the UI renders. All mutations
// are serialized internally; subscribers receive a full snapshot after every
// change, in publication order. The UI layer never mutates entries itself.
type Feed struct {
	mu          sync.RWMutex
	entries     []messaging.ConversationEntry
	subscribers map[string]chan []messaging.ConversationEntry
	logger      *slog.Logger
}

// New creates an empty feed. Pass nil logger for default.
func New(logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		subscribers: make(map[string]chan []messaging.ConversationEntry),
		logger:      logger.With("component", "feed"),
	}
}

// Replace swaps the entire sequence for the given entries, which must
// already be in chronological order. Used after a history fetch.
func (f *Feed) Replace(entries []messaging.ConversationEntry) {
	f.mu.Lock()
	f.entries = make([]messaging.ConversationEntry, len(entries))
	copy(f.entries, entries)
	snapshot := f.snapshotLocked()
	f.mu.Unlock()

	f.publish(snapshot)
}

// Append adds a single entry to the end of the sequence. Used for live
// streamed entries.
func (f *Feed) Append(entry messaging.ConversationEntry) {
	f.mu.Lock()
	f.entries = append(f.entries, entry)
	snapshot := f.snapshotLocked()
	f.mu.Unlock()

	f.publish(snapshot)
}

// Clear empties the sequence. Used on conversation reset.
func (f *Feed) Clear() {
	f.Replace(nil)
}

// Snapshot returns a copy of the current sequence in chronological order.
func (f *Feed) Snapshot() []messaging.ConversationEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshotLocked()
}

// Len returns the number of entries currently held.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// Subscribe registers a subscriber for sequence snapshots. Returns a channel
// receiving a snapshot after every mutation and a subscription ID for later
// unsubscription. The subscription is automatically cleaned up when ctx is
// cancelled.
func (f *Feed) Subscribe(ctx context.Context) (<-chan []messaging.ConversationEntry, string) {
	subID := uuid.New().String()
	ch := make(chan []messaging.ConversationEntry, subscriberBufferSize)

	f.mu.Lock()
	f.subscribers[subID] = ch
	f.mu.Unlock()

	f.logger.Debug("subscriber added", "sub_id", subID)

	// Auto-cleanup on context cancellation
	go func() {
		<-ctx.Done()
		f.Unsubscribe(subID)
	}()

	return ch, subID
}

// Unsubscribe removes a subscription and closes its channel.
func (f *Feed) Unsubscribe(subID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch, exists := f.subscribers[subID]
	if !exists {
		return
	}

	delete(f.subscribers, subID)
	close(ch)

	f.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the feed and closes all subscriber channels.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for subID, ch := range f.subscribers {
		close(ch)
		delete(f.subscribers, subID)
	}

	f.logger.Debug("feed closed")
}

// publish sends a snapshot to all subscribers.
// Non-blocking: snapshots are dropped for subscribers whose channels are full.
func (f *Feed) publish(snapshot []messaging.ConversationEntry) {
	f.mu.RLock()
	targets := make([]chan []messaging.ConversationEntry, 0, len(f.subscribers))
	for _, ch := range f.subscribers {
		targets = append(targets, ch)
	}
	f.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- snapshot:
		default:
			// Subscriber channel full; it catches up on the next snapshot.
			f.logger.Debug("dropped snapshot for slow subscriber")
		}
	}
}

// snapshotLocked copies the current entries. Caller must hold f.mu.
func (f *Feed) snapshotLocked() []messaging.ConversationEntry {
	snapshot := make([]messaging.ConversationEntry, len(f.entries))
	copy(snapshot, f.entries)
	return snapshot
}

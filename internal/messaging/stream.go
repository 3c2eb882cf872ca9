// ABOUTME: Live conversation entry streaming over Server-Sent Events
// ABOUTME: Parses the entries/stream endpoint into a channel of ConversationEntry values

package messaging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// streamBufferSize is the channel buffer for streamed entries.
const streamBufferSize = 64

// StreamEntries opens a live entry stream for this conversation. The
// returned channel is closed when the stream ends, the context is
// cancelled, or an error occurs; stream errors are reported through the
// registered error handler.
func (cc *ConversationClient) StreamEntries(ctx context.Context) (<-chan ConversationEntry, error) {
	req, err := cc.core.newRequest(ctx, http.MethodGet, cc.path("entries/stream"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The shared client enforces a request timeout, which would cut a
	// long-lived stream short. Streams rely on ctx for cancellation.
	streamClient := &http.Client{Transport: cc.core.httpc.Transport}

	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opening entry stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, serviceError(resp)
	}

	ch := make(chan ConversationEntry, streamBufferSize)
	go cc.consumeStream(ctx, resp, ch)

	return ch, nil
}

// consumeStream parses SSE frames from the response body and forwards
// decoded entries until the stream ends or ctx is cancelled.
func (cc *ConversationClient) consumeStream(ctx context.Context, resp *http.Response, ch chan<- ConversationEntry) {
	defer close(ch)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)

	var eventType string
	var dataLines []string

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Text()

		// Empty line signals end of event
		if line == "" {
			if eventType == "entry" && len(dataLines) > 0 {
				data := strings.Join(dataLines, "\n")
				var entry ConversationEntry
				if err := json.Unmarshal([]byte(data), &entry); err != nil {
					cc.core.reportError(fmt.Errorf("parsing streamed entry: %w", err))
				} else {
					select {
					case ch <- entry:
					case <-ctx.Done():
						return
					}
				}
			}
			eventType = ""
			dataLines = nil
			continue
		}

		if strings.HasPrefix(line, "event:") {
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}

		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			continue
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		cc.core.reportError(fmt.Errorf("entry stream closed: %w", err))
	}
}

// ABOUTME: Core client for the managed messaging service HTTP API
// ABOUTME: Handles session start, remote configuration, and conversation client derivation

package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/parley/internal/config"
)

// ErrVerificationRequired is returned by Start when the deployment requires
// user verification and no verification handler is registered.
var ErrVerificationRequired = errors.New("user verification required but no handler registered")

// defaultRequestTimeout bounds every request made by the client.
const defaultRequestTimeout = 30 * time.Second

// CoreClient manages session state with the messaging service, independent
// of any single conversation. Construct one instance and reuse it for all
// handler registrations and conversation clients.
type CoreClient struct {
	baseURL              *url.URL
	organizationID       string
	deploymentName       string
	verificationRequired bool
	handlers             Handlers
	httpc                *http.Client
	logger               *slog.Logger

	mu    sync.Mutex
	token string
}

// NewCoreClient creates a core client for the deployment named by the
// descriptor. The handlers are registered once, at construction time.
// Pass nil logger for default.
func NewCoreClient(desc *config.Descriptor, verificationRequired bool, handlers Handlers, logger *slog.Logger) (*CoreClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	base, err := url.Parse(desc.ServiceURL)
	if err != nil {
		return nil, fmt.Errorf("parsing service URL: %w", err)
	}

	return &CoreClient{
		baseURL:              base,
		organizationID:       desc.OrganizationID,
		deploymentName:       desc.DeploymentName,
		verificationRequired: verificationRequired,
		handlers:             handlers,
		httpc:                &http.Client{Timeout: defaultRequestTimeout},
		logger:               logger.With("component", "messaging"),
	}, nil
}

// sessionRequest is the JSON body sent to POST /api/v1/sessions.
type sessionRequest struct {
	OrganizationID string `json:"organization_id"`
	DeploymentName string `json:"deployment_name"`
}

// Start opens a session with the service. When the deployment requires user
// verification, the registered verification handler is asked for a credential
// which is attached to this and every subsequent request.
func (c *CoreClient) Start(ctx context.Context) error {
	if c.verificationRequired {
		if c.handlers.UserVerification == nil {
			return ErrVerificationRequired
		}
		token, err := c.handlers.UserVerification(ctx)
		if err != nil {
			return fmt.Errorf("obtaining verification credential: %w", err)
		}
		c.mu.Lock()
		c.token = token
		c.mu.Unlock()
	}

	req := sessionRequest{
		OrganizationID: c.organizationID,
		DeploymentName: c.deploymentName,
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", req, nil); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	c.logger.Info("messaging session started",
		"organization_id", c.organizationID,
		"deployment", c.deploymentName)
	return nil
}

// RemoteConfiguration fetches the deployment configuration. The pre-chat
// handler is invoked once per form before returning.
func (c *CoreClient) RemoteConfiguration(ctx context.Context) (*RemoteConfiguration, error) {
	path := fmt.Sprintf("/api/v1/config?organization_id=%s&deployment=%s",
		url.QueryEscape(c.organizationID), url.QueryEscape(c.deploymentName))

	var rc RemoteConfiguration
	if err := c.do(ctx, http.MethodGet, path, nil, &rc); err != nil {
		return nil, fmt.Errorf("fetching remote configuration: %w", err)
	}

	if c.handlers.PreChat != nil {
		for _, form := range rc.PreChatForms {
			c.handlers.PreChat(form)
		}
	}

	return &rc, nil
}

// Conversation derives a client scoped to the given conversation identifier.
// The returned client shares this core client's session and credential.
func (c *CoreClient) Conversation(id uuid.UUID) *ConversationClient {
	return &ConversationClient{
		core: c,
		id:   id,
	}
}

// templatedParamPattern matches {name} placeholders in templated URLs.
var templatedParamPattern = regexp.MustCompile(`\{([^}]+)\}`)

// ResolveTemplatedURL substitutes {name} placeholders via the templated URL
// handler. Parameters the handler does not recognize are left intact.
func (c *CoreClient) ResolveTemplatedURL(raw string) string {
	if c.handlers.TemplatedURL == nil {
		return raw
	}

	return templatedParamPattern.ReplaceAllStringFunc(raw, func(match string) string {
		name := strings.Trim(match, "{}")
		if value, ok := c.handlers.TemplatedURL(name); ok {
			return value
		}
		return match
	})
}

// reportError forwards an asynchronous failure to the error handler, if any.
func (c *CoreClient) reportError(err error) {
	if c.handlers.Error != nil {
		c.handlers.Error(err)
	}
}

// do performs a JSON request against the service. A nil body sends no
// payload; a nil out discards the response body.
func (c *CoreClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return serviceError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}

	return nil
}

// newRequest builds a request with the base URL and credential applied.
func (c *CoreClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing request path: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(ref).String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// serviceError extracts an error message from a non-2xx response, falling
// back to the status code.
func serviceError(resp *http.Response) error {
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var errResp map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			if msg, ok := errResp["error"]; ok && msg != "" {
				return fmt.Errorf("service error: %s", msg)
			}
		}
	}
	return fmt.Errorf("service returned status %d", resp.StatusCode)
}

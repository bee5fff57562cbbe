package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tgrandin/locachat/internal/chat"
	"go.uber.org/zap"
)

// Client talks to the platform's chat REST endpoints. Every request carries
// the session cookie; every failure comes back as a *chat.Error so callers
// can branch on the taxonomy without inspecting HTTP details.
type Client struct {
	baseURL     string
	cookieName  string
	cookieValue string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient creates a REST client for the given API origin. If httpClient is
// nil a default with a 60s overall timeout is used; per-operation deadlines
// come from the caller's context.
func NewClient(baseURL, cookieName, cookieValue string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		cookieName:  cookieName,
		cookieValue: cookieValue,
		httpClient:  httpClient,
		logger:      logger,
	}
}

// ListConversations fetches all conversations for the current user.
func (c *Client) ListConversations(ctx context.Context) ([]*chat.Conversation, error) {
	var convs []*chat.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/chat/list", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// GetConversation fetches one conversation including its full message list.
func (c *Client) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	var conv chat.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/chat/"+url.PathEscape(id), nil, &conv); err != nil {
		return nil, err
	}
	if conv.ID == "" {
		return nil, &chat.Error{Kind: chat.KindProtocol, Message: "conversation response missing id"}
	}
	return &conv, nil
}

type createConversationRequest struct {
	ChatType         chat.ConversationType `json:"chatType"`
	PropertyID       string                `json:"propertyId,omitempty"`
	ParticipantIDs   []string              `json:"participantIds"`
	ParticipantEmail string                `json:"participantEmail,omitempty"`
}

type createConversationResponse struct {
	Chat *chat.Conversation `json:"chat"`
}

// CreateConversation submits a conversation creation request and returns
// the server-assigned conversation.
func (c *Client) CreateConversation(ctx context.Context, params chat.CreateParams) (*chat.Conversation, error) {
	req := createConversationRequest{
		ChatType:         params.Type,
		PropertyID:       params.PropertyID,
		ParticipantIDs:   params.ParticipantIDs,
		ParticipantEmail: params.ParticipantEmail,
	}
	var resp createConversationResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat/create", req, &resp); err != nil {
		return nil, err
	}
	if resp.Chat == nil {
		return nil, &chat.Error{Kind: chat.KindProtocol, Message: "create response missing chat payload"}
	}
	return resp.Chat, nil
}

type sendMessageRequest struct {
	Content string `json:"content"`
	Nonce   int32  `json:"nonce"`
}

type sendMessageResponse struct {
	Message *chat.Message `json:"message"`
}

// SendMessage submits a message keyed by its nonce and returns the canonical
// server-side record. The server deduplicates on (conversationId, nonce), so
// resubmitting the same nonce after a lost acknowledgment is safe.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string, nonce int32) (*chat.Message, error) {
	req := sendMessageRequest{Content: content, Nonce: nonce}
	var resp sendMessageResponse
	path := "/api/chat/" + url.PathEscape(conversationID) + "/message"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	if resp.Message == nil {
		return nil, &chat.Error{Kind: chat.KindProtocol, Message: "send response missing message payload"}
	}
	return resp.Message, nil
}

// do performs one request/response cycle. out must be a pointer; it is only
// written on a 2xx response with a decodable body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return &chat.Error{Kind: chat.KindProtocol, Message: "encode request", Err: err}
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &chat.Error{Kind: chat.KindTransport, Message: "build request", Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.cookieValue != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.cookieValue})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("path", path), zap.Error(err))
		return &chat.Error{Kind: chat.KindTransport, Message: "network request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &chat.Error{Kind: chat.KindTransport, Message: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &chat.Error{
			Kind:    chat.KindServer,
			Status:  resp.StatusCode,
			Message: serverMessage(resp.StatusCode, raw),
		}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &chat.Error{Kind: chat.KindProtocol, Message: "decode response", Err: err}
		}
	}
	return nil
}

// serverMessage extracts a human-readable error from a best-effort JSON
// {error: string} body, falling back to a generic status message.
func serverMessage(status int, raw []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return fmt.Sprintf("server error %d", status)
}

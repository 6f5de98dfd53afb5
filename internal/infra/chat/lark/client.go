package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yanqian/answered-once/internal/domain/pipeline"
	apperrors "github.com/yanqian/answered-once/pkg/errors"
	"github.com/yanqian/answered-once/pkg/util"
)

const defaultBaseURL = "https://open.larksuite.com"

// tokenMargin refreshes the tenant token this long before it expires.
const tokenMargin = 60 * time.Second

// Config identifies the Lark app.
type Config struct {
	AppID     string
	AppSecret string
	BaseURL   string
}

// Client talks to the Lark Open API: tenant token management, message
// send/get/list. It implements pipeline.ChatClient.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient constructs the client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With("component", "chat.lark"),
	}
}

type apiEnvelope struct {
	Code              int             `json:"code"`
	Msg               string          `json:"msg"`
	Data              json.RawMessage `json:"data"`
	TenantAccessToken string          `json:"tenant_access_token"`
	Expire            int             `json:"expire"`
}

type rawMessage struct {
	MessageID  string `json:"message_id"`
	RootID     string `json:"root_id"`
	ParentID   string `json:"parent_id"`
	ChatID     string `json:"chat_id"`
	CreateTime string `json:"create_time"`
	Sender     struct {
		ID string `json:"id"`
	} `json:"sender"`
	Body struct {
		Content string `json:"content"`
	} `json:"body"`
}

// HistoryMessage is one message from a chat's history listing.
type HistoryMessage struct {
	MessageID  string
	RootID     string
	ParentID   string
	ChatID     string
	Text       string
	SenderID   string
	CreateTime time.Time
}

// SendText posts plain text, replying in-thread when rootID is set.
func (c *Client) SendText(ctx context.Context, chatID, text, rootID string) (string, error) {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", apperrors.Wrap("chat_error", "encode text content", err)
	}
	return c.sendMessage(ctx, chatID, "text", string(content), rootID)
}

// SendPost posts rich content in the Lark post format.
func (c *Client) SendPost(ctx context.Context, chatID string, content map[string]any, rootID string) (string, error) {
	payload, err := json.Marshal(content)
	if err != nil {
		return "", apperrors.Wrap("chat_error", "encode post content", err)
	}
	return c.sendMessage(ctx, chatID, "post", string(payload), rootID)
}

func (c *Client) sendMessage(ctx context.Context, chatID, msgType, content, rootID string) (string, error) {
	var (
		path  string
		query url.Values
		body  map[string]any
	)
	if rootID != "" {
		// The reply API threads the message under the root.
		path = "/open-apis/im/v1/messages/" + rootID + "/reply"
		body = map[string]any{
			"content":         content,
			"msg_type":        msgType,
			"reply_in_thread": true,
		}
	} else {
		path = "/open-apis/im/v1/messages"
		query = url.Values{"receive_id_type": []string{"chat_id"}}
		body = map[string]any{
			"receive_id": chatID,
			"msg_type":   msgType,
			"content":    content,
		}
	}

	data, err := c.do(ctx, http.MethodPost, path, query, body)
	if err != nil {
		return "", err
	}
	var sent struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(data, &sent); err != nil {
		return "", apperrors.Wrap("chat_error", "decode send response", err)
	}
	return sent.MessageID, nil
}

// GetMessage fetches one message by ID. A Lark-side miss reports found=false
// without an error; transport failures return an error.
func (c *Client) GetMessage(ctx context.Context, messageID string) (pipeline.FetchedMessage, bool, error) {
	data, err := c.do(ctx, http.MethodGet, "/open-apis/im/v1/messages/"+messageID, nil, nil)
	if err != nil {
		if apperrors.IsCode(err, "chat_api_error") {
			return pipeline.FetchedMessage{}, false, nil
		}
		return pipeline.FetchedMessage{}, false, err
	}
	var payload struct {
		Items []rawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return pipeline.FetchedMessage{}, false, apperrors.Wrap("chat_error", "decode message response", err)
	}
	if len(payload.Items) == 0 {
		return pipeline.FetchedMessage{}, false, nil
	}
	item := payload.Items[0]
	created, _ := util.ParseMillis(item.CreateTime)
	return pipeline.FetchedMessage{
		Text:       ExtractText(item.Body.Content),
		SenderID:   item.Sender.ID,
		ChatID:     item.ChatID,
		CreateTime: created,
	}, true, nil
}

// ListMessages pages through a chat's history, oldest page order as returned
// by the API.
func (c *Client) ListMessages(ctx context.Context, chatID string, pageSize int) ([]HistoryMessage, error) {
	if pageSize <= 0 {
		pageSize = 50
	}
	var (
		out       []HistoryMessage
		pageToken string
	)
	for {
		query := url.Values{
			"container_id_type": []string{"chat"},
			"container_id":      []string{chatID},
			"page_size":         []string{fmt.Sprintf("%d", pageSize)},
		}
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}
		data, err := c.do(ctx, http.MethodGet, "/open-apis/im/v1/messages", query, nil)
		if err != nil {
			return out, err
		}
		var payload struct {
			Items     []rawMessage `json:"items"`
			HasMore   bool         `json:"has_more"`
			PageToken string       `json:"page_token"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return out, apperrors.Wrap("chat_error", "decode list response", err)
		}
		for _, item := range payload.Items {
			created, _ := util.ParseMillis(item.CreateTime)
			out = append(out, HistoryMessage{
				MessageID:  item.MessageID,
				RootID:     item.RootID,
				ParentID:   item.ParentID,
				ChatID:     item.ChatID,
				Text:       ExtractText(item.Body.Content),
				SenderID:   item.Sender.ID,
				CreateTime: created,
			})
		}
		if !payload.HasMore || payload.PageToken == "" {
			return out, nil
		}
		pageToken = payload.PageToken
	}
}

// ThreadLink builds a link that opens the thread in the Lark client. The
// exact path can vary by tenant; this matches the common messenger pattern.
func (c *Client) ThreadLink(chatID, messageID string) string {
	base := strings.TrimRight(strings.Replace(c.cfg.BaseURL, "open.", "", 1), "/")
	return fmt.Sprintf("%s/messenger/thread/%s-%s", base, chatID, messageID)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (json.RawMessage, error) {
	token, err := c.tenantToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, apperrors.Wrap("chat_error", "encode request", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, apperrors.Wrap("chat_error", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap("chat_error", "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, apperrors.Wrap("chat_error", "read response", err)
	}
	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, apperrors.Wrap("chat_error", "decode response", err)
	}
	if envelope.Code != 0 {
		return nil, apperrors.Wrap("chat_api_error", fmt.Sprintf("lark api error: code=%d msg=%s", envelope.Code, envelope.Msg), nil)
	}
	return envelope.Data, nil
}

// tenantToken returns a cached tenant access token, refreshing it shortly
// before expiry.
func (c *Client) tenantToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"app_id":     c.cfg.AppID,
		"app_secret": c.cfg.AppSecret,
	})
	if err != nil {
		return "", apperrors.Wrap("chat_error", "encode token request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/open-apis/auth/v3/tenant_access_token/internal", bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.Wrap("chat_error", "build token request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap("chat_error", "token request failed", err)
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", apperrors.Wrap("chat_error", "decode token response", err)
	}
	if envelope.Code != 0 || envelope.TenantAccessToken == "" {
		return "", apperrors.Wrap("chat_api_error", fmt.Sprintf("tenant token error: code=%d msg=%s", envelope.Code, envelope.Msg), nil)
	}

	c.token = envelope.TenantAccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(envelope.Expire)*time.Second - tokenMargin)
	c.logger.Debug("tenant token refreshed", "expires_in_s", envelope.Expire)
	return c.token, nil
}

// ExtractText pulls the plain text out of a Lark message content payload.
func ExtractText(content string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return strings.TrimSpace(parsed.Text)
}

var _ pipeline.ChatClient = (*Client)(nil)

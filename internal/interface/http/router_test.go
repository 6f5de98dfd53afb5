package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/answered-once/internal/domain/pipeline"
	"github.com/yanqian/answered-once/internal/domain/qa"
	"github.com/yanqian/answered-once/internal/infra/config"
	"github.com/yanqian/answered-once/internal/infra/embedder"
	"github.com/yanqian/answered-once/internal/infra/qaindex"
	"github.com/yanqian/answered-once/pkg/metrics"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubPipeline struct {
	messages []pipeline.Event
	replies  []pipeline.Event
}

func (s *stubPipeline) HandleMessage(_ context.Context, event pipeline.Event) {
	s.messages = append(s.messages, event)
}

func (s *stubPipeline) HandleReply(_ context.Context, event pipeline.Event) {
	s.replies = append(s.replies, event)
}

func newTestServer(t *testing.T, jwtSecret string) (*httptest.Server, *stubPipeline, *qa.Store) {
	t.Helper()
	logger := newTestLogger()
	store := qa.NewStore(qa.Config{SimilarityThreshold: 0.78, TopK: 3},
		qaindex.NewMemoryIndex(), embedder.NewDeterministicEmbedder(32), logger)
	p := &stubPipeline{}
	handler := NewHandler(p, store, metrics.NewPipelineCounters(), logger)
	// Process events inline so assertions see them immediately.
	handler.dispatch = func(fn func()) { fn() }

	cfg := &config.Config{}
	cfg.HTTP.Address = ":0"
	cfg.HTTP.ReadTimeout = time.Second
	cfg.HTTP.WriteTimeout = time.Second
	cfg.Admin.JWTSecret = jwtSecret

	server := NewRouter(cfg, handler)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts, p, store
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	ts, _, _ := newTestServer(t, "")
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebhookChallengeEcho(t *testing.T) {
	ts, _, _ := newTestServer(t, "")
	resp := postJSON(t, ts.URL+"/webhook/lark", map[string]any{
		"type":      "url_verification",
		"challenge": "abc123",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "abc123", body["challenge"])
}

func messagePayload(rootID string) map[string]any {
	return map[string]any{
		"schema": "2.0",
		"header": map[string]any{"event_type": "im.message.receive_v1"},
		"event": map[string]any{
			"sender": map[string]any{
				"sender_id": map[string]any{"open_id": "ou_sender"},
			},
			"message": map[string]any{
				"message_id":   "om_1",
				"root_id":      rootID,
				"chat_id":      "oc_chat",
				"message_type": "text",
				"content":      `{"text":"how do we rotate keys?"}`,
				"create_time":  "1740000000000",
			},
		},
	}
}

func TestWebhookDispatchesRootMessage(t *testing.T) {
	ts, p, _ := newTestServer(t, "")
	resp := postJSON(t, ts.URL+"/webhook/lark", messagePayload(""))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, p.messages, 1)
	require.Empty(t, p.replies)
	event := p.messages[0]
	require.Equal(t, "oc_chat", event.ChatID)
	require.Equal(t, "om_1", event.MessageID)
	require.Equal(t, "how do we rotate keys?", event.Text)
	require.Equal(t, "ou_sender", event.SenderID)
	require.False(t, event.CreateTime.IsZero())
}

func TestWebhookDispatchesThreadReply(t *testing.T) {
	ts, p, _ := newTestServer(t, "")
	resp := postJSON(t, ts.URL+"/webhook/lark", messagePayload("om_root"))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Empty(t, p.messages)
	require.Len(t, p.replies, 1)
	require.Equal(t, "om_root", p.replies[0].RootID)
}

func TestWebhookIgnoresNonTextMessages(t *testing.T) {
	ts, p, _ := newTestServer(t, "")
	payload := messagePayload("")
	payload["event"].(map[string]any)["message"].(map[string]any)["message_type"] = "image"
	resp := postJSON(t, ts.URL+"/webhook/lark", payload)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, p.messages)
	require.Empty(t, p.replies)
}

func TestWebhookAcksUnknownEvents(t *testing.T) {
	ts, p, _ := newTestServer(t, "")
	resp := postJSON(t, ts.URL+"/webhook/lark", map[string]any{
		"schema": "2.0",
		"header": map[string]any{"event_type": "im.chat.updated_v1"},
		"event":  map[string]any{},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, p.messages)
}

func signToken(t *testing.T, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAdminRoutesHiddenWithoutSecret(t *testing.T) {
	ts, _, _ := newTestServer(t, "")
	resp, err := http.Get(ts.URL + "/api/v1/admin/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminRequiresToken(t *testing.T) {
	ts, _, _ := newTestServer(t, "sekrit")
	resp, err := http.Get(ts.URL + "/api/v1/admin/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRejectsBadToken(t *testing.T) {
	ts, _, _ := newTestServer(t, "sekrit")
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/admin/stats", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "wrong-secret"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminSeedAndLookup(t *testing.T) {
	ts, _, store := newTestServer(t, "sekrit")
	token := signToken(t, "sekrit")

	body, err := json.Marshal(map[string]any{
		"records": []map[string]any{
			{"question": "what is the guest wifi password?", "answer": "posted in the kitchen", "answererName": "Dana"},
		},
	})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/admin/seed", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var seeded map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&seeded))
	require.Equal(t, 1, seeded["inserted"])

	// Seeded records land in the shared scope.
	emb := embedder.NewDeterministicEmbedder(32)
	embedding, err := emb.Embed(context.Background(), "what is the guest wifi password?")
	require.NoError(t, err)
	candidates, err := store.FindCandidates(context.Background(), embedding, "", 3, -1)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "seed", candidates[0].Record.ChatID)
}

func TestAdminRecordNotFound(t *testing.T) {
	ts, _, _ := newTestServer(t, "sekrit")
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/admin/records/om_missing", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "sekrit"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

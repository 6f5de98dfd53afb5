package lark

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLark struct {
	tokenCalls atomic.Int64
	lastAuth   string
	lastBody   map[string]any
	lastQuery  map[string]string
}

func (f *fakeLark) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/open-apis/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0, "msg": "ok", "tenant_access_token": "t-token", "expire": 7200,
		})
	})
	mux.HandleFunc("/open-apis/im/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		f.lastQuery = map[string]string{}
		for key := range r.URL.Query() {
			f.lastQuery[key] = r.URL.Query().Get(key)
		}
		if r.Method == http.MethodPost {
			json.NewDecoder(r.Body).Decode(&f.lastBody)
			json.NewEncoder(w).Encode(map[string]any{
				"code": 0, "data": map[string]any{"message_id": "om_sent"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{
				"has_more": false,
				"items": []map[string]any{
					{
						"message_id": "om_root", "chat_id": "oc_1", "create_time": "1740000000000",
						"sender": map[string]any{"id": "ou_asker"},
						"body":   map[string]any{"content": `{"text":"how do we rotate keys?"}`},
					},
					{
						"message_id": "om_reply", "root_id": "om_root", "chat_id": "oc_1", "create_time": "1740000060000",
						"sender": map[string]any{"id": "ou_answerer"},
						"body":   map[string]any{"content": `{"text":"use the rotate script"}`},
					},
				},
			},
		})
	})
	mux.HandleFunc("/open-apis/im/v1/messages/", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		if r.Method == http.MethodPost {
			json.NewDecoder(r.Body).Decode(&f.lastBody)
			json.NewEncoder(w).Encode(map[string]any{
				"code": 0, "data": map[string]any{"message_id": "om_reply_sent"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{
				"items": []map[string]any{
					{
						"message_id": "om_root", "chat_id": "oc_1", "create_time": "1740000000000",
						"sender": map[string]any{"id": "ou_asker"},
						"body":   map[string]any{"content": `{"text":"how do we rotate keys?"}`},
					},
				},
			},
		})
	})
	return mux
}

func newTestClient(t *testing.T) (*Client, *fakeLark) {
	t.Helper()
	fake := &fakeLark{}
	ts := httptest.NewServer(fake.handler())
	t.Cleanup(ts.Close)
	client := NewClient(Config{AppID: "app", AppSecret: "secret", BaseURL: ts.URL}, newTestLogger())
	return client, fake
}

func TestSendTextToChat(t *testing.T) {
	client, fake := newTestClient(t)

	id, err := client.SendText(context.Background(), "oc_1", "hello", "")
	require.NoError(t, err)
	require.Equal(t, "om_sent", id)
	require.Equal(t, "Bearer t-token", fake.lastAuth)
	require.Equal(t, "chat_id", fake.lastQuery["receive_id_type"])
	require.Equal(t, "oc_1", fake.lastBody["receive_id"])
	require.Equal(t, "text", fake.lastBody["msg_type"])
	require.JSONEq(t, `{"text":"hello"}`, fake.lastBody["content"].(string))
}

func TestSendTextRepliesInThread(t *testing.T) {
	client, fake := newTestClient(t)

	id, err := client.SendText(context.Background(), "oc_1", "hello", "om_root")
	require.NoError(t, err)
	require.Equal(t, "om_reply_sent", id)
	require.Equal(t, true, fake.lastBody["reply_in_thread"])
}

func TestTenantTokenIsCached(t *testing.T) {
	client, fake := newTestClient(t)

	_, err := client.SendText(context.Background(), "oc_1", "one", "")
	require.NoError(t, err)
	_, err = client.SendText(context.Background(), "oc_1", "two", "")
	require.NoError(t, err)
	require.Equal(t, int64(1), fake.tokenCalls.Load())
}

func TestGetMessage(t *testing.T) {
	client, _ := newTestClient(t)

	msg, found, err := client.GetMessage(context.Background(), "om_root")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "how do we rotate keys?", msg.Text)
	require.Equal(t, "ou_asker", msg.SenderID)
	require.Equal(t, "oc_1", msg.ChatID)
	require.False(t, msg.CreateTime.IsZero())
}

func TestListMessages(t *testing.T) {
	client, _ := newTestClient(t)

	messages, err := client.ListMessages(context.Background(), "oc_1", 50)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "om_root", messages[0].MessageID)
	require.Equal(t, "om_root", messages[1].RootID)
	require.Equal(t, "use the rotate script", messages[1].Text)
}

func TestThreadLinkStripsOpenSubdomain(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://open.larksuite.com"}, newTestLogger())
	link := client.ThreadLink("oc_1", "om_root")
	require.Equal(t, "https://larksuite.com/messenger/thread/oc_1-om_root", link)
}

func TestExtractText(t *testing.T) {
	require.Equal(t, "hi there", ExtractText(`{"text":"  hi there "}`))
	require.Equal(t, "", ExtractText("not json"))
}

package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/answered-once/internal/domain/pipeline"
	"github.com/yanqian/answered-once/internal/infra/chat/lark"
	"github.com/yanqian/answered-once/pkg/util"
)

const messageReceiveEvent = "im.message.receive_v1"

// webhookEnvelope covers both the v1 (type/event) and v2 (schema/header)
// shapes of Lark event callbacks.
type webhookEnvelope struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Schema    string `json:"schema"`
	Header    struct {
		EventType string `json:"event_type"`
	} `json:"header"`
	Event json.RawMessage `json:"event"`
}

type messageEvent struct {
	Sender struct {
		SenderID struct {
			OpenID string `json:"open_id"`
		} `json:"sender_id"`
	} `json:"sender"`
	Message struct {
		MessageID   string `json:"message_id"`
		RootID      string `json:"root_id"`
		ParentID    string `json:"parent_id"`
		ChatID      string `json:"chat_id"`
		MessageType string `json:"message_type"`
		Content     string `json:"content"`
		CreateTime  string `json:"create_time"`
	} `json:"message"`
}

// Webhook receives Lark event callbacks. It acks immediately and hands the
// event to the pipeline in the background; processing failures never change
// the response Lark sees.
func (h *Handler) Webhook(c *gin.Context) {
	var envelope webhookEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		h.logger.Warn("webhook payload not decodable", "error", err)
		c.JSON(http.StatusOK, gin.H{"code": 0})
		return
	}

	// URL verification handshake.
	if envelope.Type == "url_verification" && envelope.Challenge != "" {
		c.JSON(http.StatusOK, gin.H{"challenge": envelope.Challenge})
		return
	}

	eventType := envelope.Header.EventType
	if eventType == "" {
		var v1 struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(envelope.Event, &v1)
		eventType = v1.Type
	}
	if eventType != messageReceiveEvent || len(envelope.Event) == 0 {
		c.JSON(http.StatusOK, gin.H{"code": 0})
		return
	}

	var msg messageEvent
	if err := json.Unmarshal(envelope.Event, &msg); err != nil {
		h.logger.Warn("message event not decodable", "error", err)
		c.JSON(http.StatusOK, gin.H{"code": 0})
		return
	}
	if msg.Message.MessageType != "text" {
		c.JSON(http.StatusOK, gin.H{"code": 0})
		return
	}

	created, _ := util.ParseMillis(msg.Message.CreateTime)
	event := pipeline.Event{
		ChatID:     msg.Message.ChatID,
		MessageID:  msg.Message.MessageID,
		RootID:     msg.Message.RootID,
		ParentID:   msg.Message.ParentID,
		Text:       lark.ExtractText(msg.Message.Content),
		SenderID:   msg.Sender.SenderID.OpenID,
		CreateTime: created,
	}

	h.dispatch(func() {
		ctx := context.Background()
		if event.IsThreadReply() {
			h.pipeline.HandleReply(ctx, event)
		} else {
			h.pipeline.HandleMessage(ctx, event)
		}
	})

	c.JSON(http.StatusOK, gin.H{"code": 0})
}

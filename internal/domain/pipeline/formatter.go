package pipeline

import (
	"fmt"
	"time"

	"github.com/yanqian/answered-once/internal/domain/qa"
)

func dateLabel(t time.Time) string {
	if t.IsZero() {
		return "an earlier date"
	}
	return t.Format("Jan 02")
}

// formatReplyText builds the plain-text bot reply.
func formatReplyText(rec qa.QARecord, summary, threadLink string) string {
	link := "View original thread"
	if threadLink != "" {
		link = "View original thread: " + threadLink
	}
	return fmt.Sprintf(
		"This question was answered before by %s on %s.\n\nHere's the summary:\n%s\n%s",
		rec.AnswererName, dateLabel(rec.AnswerTime), summary, link,
	)
}

// buildPostContent builds the Lark rich-post payload, using an @mention when
// the answerer's open ID is known.
func buildPostContent(rec qa.QARecord, summary, threadLink string) map[string]any {
	firstLine := []map[string]any{
		{"tag": "text", "text": "This question was answered before by "},
	}
	if rec.AnswererID != "" {
		firstLine = append(firstLine,
			map[string]any{"tag": "at", "user_id": rec.AnswererID},
			map[string]any{"tag": "text", "text": fmt.Sprintf(" on %s.", dateLabel(rec.AnswerTime))},
		)
	} else {
		firstLine = append(firstLine,
			map[string]any{"tag": "text", "text": fmt.Sprintf("%s on %s.", rec.AnswererName, dateLabel(rec.AnswerTime))},
		)
	}

	content := []any{
		firstLine,
		[]map[string]any{{"tag": "text", "text": ""}},
		[]map[string]any{{"tag": "text", "text": "Here's the summary:"}},
		[]map[string]any{{"tag": "text", "text": summary}},
	}
	if threadLink != "" {
		content = append(content, []map[string]any{
			{"tag": "a", "text": "View original thread", "href": threadLink},
		})
	}

	body := map[string]any{"title": "", "content": content}
	return map[string]any{"zh_cn": body, "en_us": body}
}

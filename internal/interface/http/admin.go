package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/answered-once/internal/domain/qa"
	apperrors "github.com/yanqian/answered-once/pkg/errors"
	"github.com/yanqian/answered-once/pkg/util"
)

// seedItem is one record in an admin seed request.
type seedItem struct {
	Question     string    `json:"question" binding:"required"`
	Answer       string    `json:"answer" binding:"required"`
	AnswererName string    `json:"answererName"`
	ChatID       string    `json:"chatId"`
	AnswerTime   time.Time `json:"answerTime"`
}

type seedRequest struct {
	Records []seedItem `json:"records" binding:"required"`
}

// Seed bulk-loads curated Q&A records into the index.
func (h *Handler) Seed(c *gin.Context) {
	var req seedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	inserted := 0
	for _, item := range req.Records {
		record := qa.QARecord{
			QuestionText: item.Question,
			AnswerText:   item.Answer,
			AnswererName: item.AnswererName,
			AnswerTime:   item.AnswerTime,
			ChatID:       item.ChatID,
		}
		if record.ChatID == "" {
			record.ChatID = "seed"
		}
		if record.AnswerTime.IsZero() {
			record.AnswerTime = util.NowUTC()
		}
		if err := h.store.AddRecord(c.Request.Context(), record); err != nil {
			status := http.StatusInternalServerError
			code := "seed_failed"
			if apperrors.IsCode(err, "invalid_input") {
				status = http.StatusBadRequest
				code = "invalid_request"
			}
			abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
			return
		}
		inserted++
	}

	c.JSON(http.StatusOK, gin.H{"inserted": inserted})
}

// GetRecord looks up the stored record for a thread root.
func (h *Handler) GetRecord(c *gin.Context) {
	rootID := c.Param("rootID")
	record, found, err := h.store.GetRecordForRoot(c.Request.Context(), rootID)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "lookup_failed", errMessage(err), err))
		return
	}
	if !found {
		abortWithError(c, NewHTTPError(http.StatusNotFound, "not_found", "no record for root", nil))
		return
	}
	c.JSON(http.StatusOK, record)
}

// Stats exposes pipeline counters.
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.counters.Snapshot())
}

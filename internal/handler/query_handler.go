package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ragdex/ragdex/internal/model"
	"github.com/ragdex/ragdex/internal/pkg/response"
	"github.com/ragdex/ragdex/internal/service"
)

type QueryHandler struct {
	answerer *service.AnswerService
}

func NewQueryHandler(answerer *service.AnswerService) *QueryHandler {
	return &QueryHandler{answerer: answerer}
}

type queryRequest struct {
	History  []model.ChatTurn `json:"history"`
	Question string           `json:"question"`
	TopK     int              `json:"top_k"`
}

type queryResponse struct {
	Answer      string   `json:"answer"`
	Matches     []string `json:"matches"`
	SourceCount int      `json:"source_count"`
}

func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.answerer.Answer(c.Request.Context(), req.History, req.Question, req.TopK)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuestion) {
			response.Error(c, http.StatusBadRequest, "question is required")
			return
		}
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, queryResponse{
		Answer:      result.Answer,
		Matches:     result.Matches,
		SourceCount: result.SourceCount,
	})
}

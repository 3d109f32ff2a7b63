package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shaibs/reqsearch/internal/answer"
	"github.com/shaibs/reqsearch/internal/pkg/errcode"
	"github.com/shaibs/reqsearch/internal/pkg/response"
)

type IAnswerer interface {
	Answer(ctx context.Context, rawQuery string, topK int, useGeneration bool) (*answer.Answer, error)
}

type AnswerHandler struct {
	answers IAnswerer
}

func NewAnswerHandler(answers IAnswerer) *AnswerHandler {
	return &AnswerHandler{answers: answers}
}

type answerRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
	// generation defaults on; a nil pointer distinguishes "omitted" from false
	UseGeneration *bool `json:"use_generation"`
}

func (h *AnswerHandler) Answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		response.Error(c, errcode.ErrInvalid, "query required")
		return
	}
	useGeneration := true
	if req.UseGeneration != nil {
		useGeneration = *req.UseGeneration
	}
	ans, err := h.answers.Answer(c.Request.Context(), req.Query, req.TopK, useGeneration)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, ans)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/shaibs/reqsearch/internal/pkg/response"
)

type RequestHandler struct {
	search ISearcher
}

func NewRequestHandler(search ISearcher) *RequestHandler {
	return &RequestHandler{search: search}
}

func (h *RequestHandler) Get(c *gin.Context) {
	req, err := h.search.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, req)
}

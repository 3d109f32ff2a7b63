package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/shaibs/reqsearch/internal/pkg/errcode"
	errs "github.com/shaibs/reqsearch/internal/pkg/errors"
	"github.com/shaibs/reqsearch/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, errs.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, errs.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, "too many requests")
	case errors.Is(err, errs.ErrIndexRunning):
		response.Error(c, errcode.ErrIndexRunning, "index rebuild already running")
	case errors.Is(err, errs.ErrRetrieval):
		response.Error(c, errcode.ErrRetrieval, "retrieval failed")
	case errors.Is(err, errs.ErrGenLoading), errors.Is(err, errs.ErrGenerator):
		response.Error(c, errcode.ErrGeneratorUnavailable, "answer generation unavailable")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

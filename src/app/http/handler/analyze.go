package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scholarduel/src/app/http/dto"
	"scholarduel/src/app/middleware"
	"scholarduel/src/core/usecase"
)

// AnalyzeHandler streams the judge's verdict for an argument.
type AnalyzeHandler struct {
	analyzeService *usecase.AnalyzeService
}

func NewAnalyzeHandler(analyzeService *usecase.AnalyzeService) *AnalyzeHandler {
	return &AnalyzeHandler{analyzeService: analyzeService}
}

// Analyze streams the verdict as text. Callers parse the body as JSON once
// it is complete.
// POST /api/duel/analyze
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzeRequest
	if !bindJSON(c, &req) {
		return
	}
	arg := req.ToArgument()
	if err := h.analyzeService.Validate(arg); err != nil {
		fail(c, err)
		return
	}

	w := &flushWriter{c: c}
	err := h.analyzeService.Stream(c.Request.Context(), middleware.GetSession(c), arg, w)
	if err == nil {
		if !w.started {
			c.Status(http.StatusOK)
		}
		return
	}
	if !w.started {
		fail(c, err)
		return
	}
	// The status line is already out; cut the stream short.
	_ = c.Error(err)
	c.Abort()
}

// flushWriter writes the response headers on the first chunk and flushes
// after every write.
type flushWriter struct {
	c       *gin.Context
	started bool
}

func (w *flushWriter) Write(p []byte) (int, error) {
	if !w.started {
		w.started = true
		w.c.Header("Content-Type", "text/plain; charset=utf-8")
		w.c.Header("Cache-Control", "no-cache")
		w.c.Header("X-Content-Type-Options", "nosniff")
		w.c.Status(http.StatusOK)
	}
	n, err := w.c.Writer.Write(p)
	if err != nil {
		return n, err
	}
	w.c.Writer.Flush()
	return n, nil
}

package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/medrag/internal/pkg/errcode"
	"github.com/xxxsen/medrag/internal/pkg/response"
	"github.com/xxxsen/medrag/internal/rag"
)

const (
	defaultSearchK = 5
	maxSearchK     = 50

	ThrottledText = "Too many requests. Please wait a moment before asking again."
)

type AskHandler struct {
	rag *rag.Service
}

func NewAskHandler(svc *rag.Service) *AskHandler {
	return &AskHandler{rag: svc}
}

type askRequest struct {
	Prompt string `json:"prompt"`
}

// Ask always replies 200 with {"result": ...}. Upstream failures are rendered
// into the result text.
func (h *AskHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Prompt = ""
	}
	result := h.rag.Ask(c.Request.Context(), req.Prompt)
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// Throttled answers a rate limited question in the same {"result"} shape
// as Ask.
func (h *AskHandler) Throttled(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"result": ThrottledText})
}

func (h *AskHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		response.Error(c, errcode.ErrInvalid, "q is required")
		return
	}
	k := defaultSearchK
	if raw := c.Query("k"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			response.Error(c, errcode.ErrInvalid, "invalid k")
			return
		}
		k = v
	}
	if k > maxSearchK {
		k = maxSearchK
	}
	matches, err := h.rag.Search(c.Request.Context(), query, k)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"matches": matches})
}

func (h *AskHandler) Stats(c *gin.Context) {
	name, count, err := h.rag.Collection(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"collection": name, "count": count})
}

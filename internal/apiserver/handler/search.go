// Package handler provides HTTP handlers for the search API.
package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/mediasearch/internal/apiserver/biz"
	"github.com/kart-io/mediasearch/internal/model"
	"github.com/kart-io/mediasearch/pkg/utils/errors"
)

// maxUploadBytes bounds a query file upload.
const maxUploadBytes = 64 << 20

// SearchHandler handles search HTTP requests.
type SearchHandler struct {
	service *biz.SearchService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(service *biz.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, err error) {
	e := errors.FromError(err)
	c.JSON(e.HTTP, ErrorResponse{Code: e.Code, Message: e.Message})
}

// SearchRequest binds the text search query parameters.
type SearchRequest struct {
	Query string `form:"q" binding:"required"`
	Type  string `form:"type" binding:"required"`
	Limit int    `form:"limit"`
}

// Search handles GET /v1/search: text query against one modality.
func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, errors.ErrBadRequest.WithMessage("%v", err))
		return
	}

	mod, err := model.ParseModality(req.Type)
	if err != nil {
		respondError(c, errors.ErrInvalidSearchType.WithMessage("%v", err))
		return
	}

	hits, err := h.service.QueryByText(c.Request.Context(), req.Query, mod, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "ok", Data: hits})
}

// SearchByFile handles POST /v1/search/file: multipart upload queried
// against its own modality.
func (h *SearchHandler) SearchByFile(c *gin.Context) {
	modType := c.PostForm("type")
	mod, err := model.ParseModality(modType)
	if err != nil {
		respondError(c, errors.ErrInvalidSearchType.WithMessage("%v", err))
		return
	}

	limit := 0
	if raw := c.PostForm("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			respondError(c, errors.ErrBadRequest.WithMessage("invalid limit %q", raw))
			return
		}
	}

	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, errors.ErrBadRequest.WithMessage("missing file upload"))
		return
	}
	if fh.Size > maxUploadBytes {
		respondError(c, errors.ErrBadRequest.WithMessage("upload larger than %d bytes", maxUploadBytes))
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, errors.ErrBadRequest.WithMessage("open upload: %v", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		respondError(c, errors.ErrBadRequest.WithMessage("read upload: %v", err))
		return
	}

	var hits []model.Hit
	switch mod {
	case model.ModalityImage:
		hits, err = h.service.QueryByImageFile(c.Request.Context(), data, limit)
	case model.ModalityAudio:
		hits, err = h.service.QueryByAudioFile(c.Request.Context(), fh.Filename, data, limit)
	default:
		err = errors.ErrInvalidSearchType.WithMessage("file search supports image and audio, got %q", modType)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "ok", Data: hits})
}

// Stats handles GET /v1/stats.
func (h *SearchHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "ok", Data: stats})
}

// Healthz handles GET /healthz.
func (h *SearchHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

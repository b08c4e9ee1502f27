package handler

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bugboard/internal/service"
	resp "bugboard/internal/transport/http/response"
)

// AttachmentHandler 附件下载；不走 JSON 信封，成功时直接写文件流
type AttachmentHandler struct {
	svc *service.AttachmentService
	log *zap.Logger
}

func NewAttachmentHandler(svc *service.AttachmentService, l *zap.Logger) *AttachmentHandler {
	return &AttachmentHandler{svc: svc, log: l}
}

// Download GET /attachments/:id/download
func (h *AttachmentHandler) Download(c *gin.Context) {
	a, rc, err := h.svc.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		r := resp.FromErr(err)
		if r.Code >= resp.CodeServerError {
			h.log.Error("attachment open failed", zap.String("attachment_id", c.Param("id")), zap.Error(err))
		}
		c.JSON(http.StatusOK, r)
		return
	}
	defer rc.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": a.OriginalName})
	c.DataFromReader(http.StatusOK, a.SizeBytes, a.MimeType, rc, map[string]string{
		"Content-Disposition":    disposition,
		"X-Content-Type-Options": "nosniff",
		"X-Content-Hash":         hashOf(a.ContentHash),
		"Cache-Control":          "private, max-age=3600",
	})
}

func hashOf(h *string) string {
	if h == nil {
		return ""
	}
	return "sha256=" + *h
}

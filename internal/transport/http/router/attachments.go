package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bugboard/internal/domain"
	"bugboard/internal/service"
	httpez "bugboard/internal/transport/http/ez"
	"bugboard/internal/transport/http/handler"
)

type attachmentsModule struct{ d Deps }

func (attachmentsModule) Priority() int { return 40 }

func (m attachmentsModule) MountAPI(g *gin.RouterGroup) {
	ez := httpez.New(g, m.d.Log)
	svc := m.d.Svc

	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.Attachment]{
		Method: http.MethodGet,
		Path:   "/attachments/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Attachment, error) {
			return svc.Attachments.Get(c.Request.Context(), c.Param("id"))
		},
	})

	g.GET("/attachments/:id/download", handler.NewAttachmentHandler(svc.Attachments, m.d.Log).Download)

	httpez.RegisterAction(ez, httpez.Action[struct{}, idOut]{
		Method: http.MethodDelete,
		Path:   "/attachments/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (idOut, error) {
			id := c.Param("id")
			return idOut{ID: id}, svc.Attachments.Delete(c.Request.Context(), actorOf(c), id)
		},
	})
}

// MountAdmin 存储清扫：删除没有附件行引用的孤儿文件
func (m attachmentsModule) MountAdmin(g *gin.RouterGroup) {
	ez := httpez.New(g, m.d.Log)

	type sweepIn struct {
		DryRun bool `form:"dryRun"`
	}
	httpez.RegisterAction(ez, httpez.Action[sweepIn, *service.SweepResult]{
		Method: http.MethodPost,
		Path:   "/storage/sweep",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *sweepIn) (*service.SweepResult, error) {
			return m.d.Svc.Attachments.Sweep(c.Request.Context(), in.DryRun)
		},
	})
}

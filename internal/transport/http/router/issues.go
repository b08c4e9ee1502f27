package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bugboard/internal/domain"
	"bugboard/internal/service"
	httpez "bugboard/internal/transport/http/ez"
)

type issuesModule struct{ d Deps }

func (issuesModule) Priority() int { return 20 }

func (m issuesModule) MountAPI(g *gin.RouterGroup) {
	ez := httpez.New(g, m.d.Log)
	svc := m.d.Svc

	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.Issue]{
		Method: http.MethodGet,
		Path:   "/issues/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Issue, error) {
			return svc.Issues.Get(c.Request.Context(), c.Param("id"))
		},
	})

	// 只改出现的字段；新文件与已有附件合计不超过 3
	httpez.RegisterAction(ez, httpez.Action[service.IssuePatch, *domain.Issue]{
		Method: http.MethodPut,
		Path:   "/issues/:id",
		Binder: httpez.BindMultipart,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.IssuePatch) (*domain.Issue, error) {
			parts, err := httpez.Files(c, "files")
			if err != nil {
				return nil, err
			}
			return svc.Issues.Update(c.Request.Context(), actorOf(c), c.Param("id"), *in, parts)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, idOut]{
		Method: http.MethodDelete,
		Path:   "/issues/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (idOut, error) {
			id := c.Param("id")
			return idOut{ID: id}, svc.Issues.Delete(c.Request.Context(), actorOf(c), id)
		},
	})
}

type commentsModule struct{ d Deps }

func (commentsModule) Priority() int { return 30 }

func (m commentsModule) MountAPI(g *gin.RouterGroup) {
	ez := httpez.New(g, m.d.Log)
	svc := m.d.Svc

	httpez.RegisterAction(ez, httpez.Action[pageQ, listOut[domain.Comment]]{
		Method: http.MethodGet,
		Path:   "/issues/:id/comments",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *pageQ) (listOut[domain.Comment], error) {
			items, total, err := svc.Comments.List(c.Request.Context(), c.Param("id"), in.page())
			return list(items, total), err
		},
	})

	type commentIn struct {
		Text string `form:"text"`
	}
	httpez.RegisterAction(ez, httpez.Action[commentIn, *domain.Comment]{
		Method: http.MethodPost,
		Path:   "/issues/:id/comments",
		Binder: httpez.BindMultipart,
		Auth:   true,
		Handler: func(c *gin.Context, in *commentIn) (*domain.Comment, error) {
			parts, err := httpez.Files(c, "files")
			if err != nil {
				return nil, err
			}
			return svc.Comments.Create(c.Request.Context(), actorOf(c), c.Param("id"), in.Text, parts)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, idOut]{
		Method: http.MethodDelete,
		Path:   "/comments/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (idOut, error) {
			id := c.Param("id")
			return idOut{ID: id}, svc.Comments.Delete(c.Request.Context(), actorOf(c), id)
		},
	})
}

package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bugboard/internal/domain"
	"bugboard/internal/service"
	httpez "bugboard/internal/transport/http/ez"
)

type projectsModule struct{ d Deps }

func (projectsModule) Priority() int { return 10 }

func (m projectsModule) MountAPI(g *gin.RouterGroup) {
	ez := httpez.New(g, m.d.Log)
	svc := m.d.Svc

	httpez.RegisterAction(ez, httpez.Action[pageQ, listOut[domain.Project]]{
		Method: http.MethodGet,
		Path:   "/projects",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *pageQ) (listOut[domain.Project], error) {
			items, total, err := svc.Projects.List(c.Request.Context(), in.page())
			return list(items, total), err
		},
	})

	ez.GET("/projects/:id", func(c *gin.Context) (any, error) {
		return svc.Projects.Get(c.Request.Context(), c.Param("id"))
	})

	type issuesQ struct {
		pageQ
		Type     string `form:"type"`
		Status   string `form:"status"`
		Priority string `form:"priority"`
	}
	httpez.RegisterAction(ez, httpez.Action[issuesQ, listOut[domain.Issue]]{
		Method: http.MethodGet,
		Path:   "/projects/:id/issues",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *issuesQ) (listOut[domain.Issue], error) {
			f := domain.IssueFilter{
				Type:     domain.IssueType(in.Type),
				Status:   domain.IssueStatus(in.Status),
				Priority: domain.IssuePriority(in.Priority),
			}
			items, total, err := svc.Issues.List(c.Request.Context(), c.Param("id"), f, in.page())
			return list(items, total), err
		},
	})

	// multipart：title/description/type/status/priority + 最多 3 个 files
	httpez.RegisterAction(ez, httpez.Action[service.IssueInput, *domain.Issue]{
		Method: http.MethodPost,
		Path:   "/projects/:id/issues",
		Binder: httpez.BindMultipart,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.IssueInput) (*domain.Issue, error) {
			parts, err := httpez.Files(c, "files")
			if err != nil {
				return nil, err
			}
			return svc.Issues.Create(c.Request.Context(), actorOf(c), c.Param("id"), *in, parts)
		},
	})
}

func (m projectsModule) MountAdmin(g *gin.RouterGroup) {
	ez := httpez.New(g, m.d.Log)
	svc := m.d.Svc

	type createIn struct {
		Name string `json:"name" binding:"required"`
	}
	httpez.RegisterAction(ez, httpez.Action[createIn, *domain.Project]{
		Method: http.MethodPost,
		Path:   "/projects",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *createIn) (*domain.Project, error) {
			return svc.Projects.Create(c.Request.Context(), in.Name)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[pageQ, listOut[domain.Project]]{
		Method: http.MethodGet,
		Path:   "/projects",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *pageQ) (listOut[domain.Project], error) {
			items, total, err := svc.Projects.List(c.Request.Context(), in.page())
			return list(items, total), err
		},
	})

	// 级联删除 issue、评论、附件及其文件
	httpez.RegisterAction(ez, httpez.Action[struct{}, idOut]{
		Method: http.MethodDelete,
		Path:   "/projects/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (idOut, error) {
			id := c.Param("id")
			return idOut{ID: id}, svc.Projects.Delete(c.Request.Context(), id)
		},
	})
}

package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bugboard/internal/domain"
	"bugboard/internal/service"
	httpez "bugboard/internal/transport/http/ez"
)

type usersModule struct{ d Deps }

func (usersModule) Priority() int { return 5 }

func (m usersModule) MountAdmin(g *gin.RouterGroup) {
	ez := httpez.New(g, m.d.Log)
	svc := m.d.Svc

	httpez.RegisterAction(ez, httpez.Action[pageQ, listOut[domain.User]]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *pageQ) (listOut[domain.User], error) {
			items, total, err := svc.Users.List(c.Request.Context(), in.page())
			return list(items, total), err
		},
	})

	httpez.RegisterAction(ez, httpez.Action[service.RegisterInput, *domain.User]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.RegisterInput) (*domain.User, error) {
			return svc.Users.Register(c.Request.Context(), *in)
		},
	})

	// 按 users.deletePolicy 级联或拒绝；不能删自己
	httpez.RegisterAction(ez, httpez.Action[struct{}, idOut]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (idOut, error) {
			id := c.Param("id")
			return idOut{ID: id}, svc.Users.Delete(c.Request.Context(), actorOf(c), id)
		},
	})
}

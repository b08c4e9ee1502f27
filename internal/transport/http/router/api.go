package router

import (
	"github.com/gin-gonic/gin"
)

// NewAPIEngine 用户端 /api/v1
func NewAPIEngine(d Deps) *gin.Engine {
	r := base(d)

	// 前缀
	api := r.Group("/api/v1")

	// 鉴权分组（/me 与所有资源接口都挂这里，才能拿到 userId）
	authUser := api.Group("")
	authUser.Use(d.authenticate())

	mountAuthActions(api, authUser, d)
	d.registry().MountAPI(authUser)
	return r
}

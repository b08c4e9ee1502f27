package router

import (
	"github.com/gin-gonic/gin"

	"bugboard/internal/domain"
	mdw "bugboard/internal/transport/http/middleware"
)

// NewAdminEngine 管理端 /admin/v1，统一要求 Administrator
func NewAdminEngine(d Deps) *gin.Engine {
	r := base(d)

	admin := r.Group("/admin/v1")
	authAdmin := admin.Group("")
	authAdmin.Use(d.authenticate(), mdw.RequireRole(domain.RoleAdmin))

	mountAuthActions(admin, authAdmin, d)
	d.registry().MountAdmin(authAdmin)
	return r
}

package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bugboard/internal/core/auth"
	"bugboard/internal/core/server"
	"bugboard/internal/domain"
	"bugboard/internal/repo"
	"bugboard/internal/service"
	mdw "bugboard/internal/transport/http/middleware"
)

// Deps 两个 engine 共用的依赖
type Deps struct {
	Log       *zap.Logger
	Svc       *service.Services
	JWT       *auth.JWTer
	Refresher auth.Refresher // nil 时用 JWT 本地刷新
	Cookie    mdw.CookieConfig
	// CORSOrigins 为空时放开所有 origin（此时浏览器不会带 cookie）
	CORSOrigins []string
	// Health 额外的就绪检查（db、redis）
	Health func() error
}

func (d Deps) refresher() auth.Refresher {
	if d.Refresher != nil {
		return d.Refresher
	}
	return d.JWT
}

func (d Deps) authenticate() gin.HandlerFunc {
	return mdw.Authenticate(mdw.AuthOptions{
		Verifier:  d.JWT,
		Refresher: d.refresher(),
		Resolver:  d.Svc.Principals,
		Cookie:    d.Cookie,
		Log:       d.Log.Named("auth"),
	})
}

// registry 全部资源模块
func (d Deps) registry() *Registry {
	reg := &Registry{}
	reg.Register(
		projectsModule{d},
		issuesModule{d},
		commentsModule{d},
		attachmentsModule{d},
		usersModule{d},
	)
	return reg
}

// base 中间件链 + /health + /metrics
func base(d Deps) *gin.Engine {
	r := server.NewRouter(d.Log, d.CORSOrigins)

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.RateLimitPerIP(20, 40, 10*time.Minute),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(16<<20),
		mdw.Timeout(30*time.Second),
		mdw.SimpleRecovery(d.Log),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"ok": 0, "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": 1})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func actorOf(c *gin.Context) service.Actor {
	return service.Actor{UserID: c.GetString(mdw.KeyUserID), Role: domain.Role(c.GetString(mdw.KeyRole))}
}

type pageQ struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

func (q pageQ) page() repo.Page { return repo.PageOf(q.Page, q.Size) }

type listOut[T any] struct {
	Total int64 `json:"total"`
	Items []T   `json:"items"`
}

func list[T any](items []T, total int64) listOut[T] {
	if items == nil {
		items = []T{}
	}
	return listOut[T]{Total: total, Items: items}
}

type idOut struct {
	ID string `json:"id"`
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bugboard/internal/core/auth"
	"bugboard/internal/domain"
	resp "bugboard/internal/transport/http/response"
)

const (
	CookieAccess  = "access_token"
	CookieRefresh = "refresh_token"

	KeyUserID    = "userId"
	KeyRole      = "role"
	KeyPrincipal = "principal"
)

// Verifier 校验 access token
type Verifier interface {
	Verify(token string) (*auth.Principal, error)
}

// PrincipalResolver 身份 → 本地用户
type PrincipalResolver interface {
	Resolve(ctx context.Context, p auth.Principal) (*domain.User, error)
}

type CookieConfig struct {
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// ParseSameSite 配置里的 lax / strict / none
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

type AuthOptions struct {
	Verifier  Verifier
	Refresher auth.Refresher
	Resolver  PrincipalResolver
	Cookie    CookieConfig
	Log       *zap.Logger
}

// Authenticate 校验 access token；过期且带 refresh cookie 时自动续期并写回新 cookie
func Authenticate(o AuthOptions) gin.HandlerFunc {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	return func(c *gin.Context) {
		p, err := principalOf(c, o)
		if err != nil {
			reject(c, err)
			return
		}
		u, err := o.Resolver.Resolve(c.Request.Context(), *p)
		if err != nil {
			if k := domain.KindOf(err); k == domain.KindNotFound || k == domain.KindUnauthorized {
				reject(c, domain.ErrUnauthorized.Withf("unknown principal"))
				return
			}
			o.Log.Error("principal resolve failed", zap.String("rid", c.GetString(KeyRID)), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusOK, resp.FromErr(err))
			return
		}
		c.Set(KeyUserID, u.ID)
		c.Set(KeyRole, string(u.Role))
		c.Set(KeyPrincipal, p)
		c.Next()
	}
}

func principalOf(c *gin.Context, o AuthOptions) (*auth.Principal, error) {
	tok := bearer(c)
	if tok != "" {
		p, err := o.Verifier.Verify(tok)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, auth.ErrTokenExpired) {
			return nil, domain.ErrUnauthorized.Withf("invalid token")
		}
	}
	rt, _ := c.Cookie(CookieRefresh)
	if rt == "" {
		if tok == "" {
			return nil, domain.ErrUnauthorized.Withf("missing token")
		}
		return nil, domain.ErrUnauthorized.Withf("token expired")
	}
	return refresh(c, o, rt)
}

// refresh 失败时清掉两个 cookie，前端据此回到登录页
func refresh(c *gin.Context, o AuthOptions, rt string) (*auth.Principal, error) {
	toks, err := o.Refresher.Refresh(c.Request.Context(), rt)
	if err == nil {
		var p *auth.Principal
		if p, err = o.Verifier.Verify(toks.AccessToken); err == nil {
			SetSessionCookies(c, o.Cookie, toks)
			o.Log.Debug("session refreshed", zap.String("sub", p.Subject))
			return p, nil
		}
	}
	o.Log.Info("session refresh failed", zap.String("rid", c.GetString(KeyRID)), zap.Error(err))
	ClearSessionCookies(c, o.Cookie)
	return nil, domain.ErrUnauthorized.Withf("session expired")
}

func bearer(c *gin.Context) string {
	if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
	}
	tok, _ := c.Cookie(CookieAccess)
	return tok
}

func reject(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusOK, resp.FromErr(err))
}

// SetSessionCookies 写 access/refresh cookie；身份提供方没轮换 refresh token 时保留旧的
func SetSessionCookies(c *gin.Context, cc CookieConfig, t *auth.Tokens) {
	setCookie(c, cc, CookieAccess, t.AccessToken, t.AccessExpiry)
	if t.RefreshToken != "" {
		setCookie(c, cc, CookieRefresh, t.RefreshToken, t.RefreshExpiry)
	}
}

func ClearSessionCookies(c *gin.Context, cc CookieConfig) {
	for _, name := range []string{CookieAccess, CookieRefresh} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name: name, Value: "", Path: cookiePath(cc), Domain: cc.Domain,
			MaxAge: -1, HttpOnly: true, Secure: cc.Secure, SameSite: cc.SameSite,
		})
	}
}

func setCookie(c *gin.Context, cc CookieConfig, name, value string, exp time.Time) {
	ck := &http.Cookie{
		Name: name, Value: value, Path: cookiePath(cc), Domain: cc.Domain,
		HttpOnly: true, Secure: cc.Secure, SameSite: cc.SameSite,
	}
	if !exp.IsZero() {
		ck.Expires = exp
		ck.MaxAge = int(time.Until(exp).Seconds())
	}
	http.SetCookie(c.Writer, ck)
}

func cookiePath(cc CookieConfig) string {
	if cc.Path == "" {
		return "/"
	}
	return cc.Path
}

// RequireRole 限定角色，放在 Authenticate 之后
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := domain.Role(c.GetString(KeyRole))
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusOK, resp.FromErr(domain.ErrForbidden))
	}
}

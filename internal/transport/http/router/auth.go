package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bugboard/internal/core/auth"
	"bugboard/internal/domain"
	httpez "bugboard/internal/transport/http/ez"
	mdw "bugboard/internal/transport/http/middleware"
)

type sessionOut struct {
	User   *domain.User `json:"user"`
	Tokens *auth.Tokens `json:"tokens"`
}

// mountAuthActions /auth/login、/auth/refresh、/auth/logout 公开；/me 挂在鉴权分组
func mountAuthActions(public, authed *gin.RouterGroup, d Deps) {
	ezPublic := httpez.New(public, d.Log)

	type loginIn struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	httpez.RegisterAction(ezPublic, httpez.Action[loginIn, sessionOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (sessionOut, error) {
			u, err := d.Svc.Users.Authenticate(c.Request.Context(), strings.TrimSpace(in.Email), in.Password)
			if err != nil {
				return sessionOut{}, err
			}
			toks, err := d.JWT.Issue(auth.Principal{
				UserID: u.ID, Email: u.Email, Name: u.Name + " " + u.Surname, Role: string(u.Role),
			})
			if err != nil {
				return sessionOut{}, httpez.Internal("issue token failed", err)
			}
			mdw.SetSessionCookies(c, d.Cookie, toks)
			d.Log.Info("login", zap.String("user_id", u.ID))
			return sessionOut{User: u, Tokens: toks}, nil
		},
	})

	// body 里没有 refreshToken 时读 cookie
	type refreshIn struct {
		RefreshToken string `json:"refreshToken"`
	}
	httpez.RegisterAction(ezPublic, httpez.Action[refreshIn, *auth.Tokens]{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, in *refreshIn) (*auth.Tokens, error) {
			if c.Request.ContentLength > 0 {
				if err := c.ShouldBindJSON(in); err != nil {
					return nil, httpez.BadRequest(err.Error())
				}
			}
			rt := in.RefreshToken
			if rt == "" {
				rt, _ = c.Cookie(mdw.CookieRefresh)
			}
			if rt == "" {
				return nil, domain.ErrUnauthorized.Withf("missing refresh token")
			}
			toks, err := d.refresher().Refresh(c.Request.Context(), rt)
			if err == nil {
				_, err = d.JWT.Verify(toks.AccessToken)
			}
			if err != nil {
				mdw.ClearSessionCookies(c, d.Cookie)
				return nil, domain.ErrUnauthorized.Withf("session expired")
			}
			mdw.SetSessionCookies(c, d.Cookie, toks)
			return toks, nil
		},
	})

	httpez.RegisterAction(ezPublic, httpez.Action[struct{}, struct{}]{
		Method: http.MethodPost,
		Path:   "/auth/logout",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) {
			mdw.ClearSessionCookies(c, d.Cookie)
			return struct{}{}, nil
		},
	})

	ezAuth := httpez.New(authed, d.Log)
	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return d.Svc.Users.Get(c.Request.Context(), c.GetString(mdw.KeyUserID))
		},
	})
}

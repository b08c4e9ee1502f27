package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gin-gonic/gin"

	"bugboard/internal/core/auth"
	"bugboard/internal/domain"
	mdw "bugboard/internal/transport/http/middleware"
	resp "bugboard/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

var secret = []byte("test-secret")

func jwter(offset time.Duration) *auth.JWTer {
	j := &auth.JWTer{Secret: secret, Issuer: "bugboard", TTL: 15 * time.Minute, RefreshTTL: 24 * time.Hour}
	if offset != 0 {
		j.Now = func() time.Time { return time.Now().Add(offset) }
	}
	return j
}

type users map[string]*domain.User

func (u users) Resolve(_ context.Context, p auth.Principal) (*domain.User, error) {
	if x, ok := u[p.UserID]; ok {
		return x, nil
	}
	return nil, domain.ErrUserNotFound
}

type failingRefresher struct{}

func (failingRefresher) Refresh(context.Context, string) (*auth.Tokens, error) {
	return nil, auth.ErrRefreshFailed
}

func engine(refresher auth.Refresher, guard ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	chain := []gin.HandlerFunc{mdw.Authenticate(mdw.AuthOptions{
		Verifier:  jwter(0),
		Refresher: refresher,
		Resolver: users{
			"u1": {ID: "u1", Role: domain.RoleStandard},
			"u2": {ID: "u2", Role: domain.RoleAdmin},
		},
		Cookie: mdw.CookieConfig{SameSite: http.SameSiteLaxMode, Secure: true},
	})}
	chain = append(chain, guard...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, resp.OK(gin.H{"userId": c.GetString(mdw.KeyUserID), "role": c.GetString(mdw.KeyRole)}))
	})
	r.GET("/me", chain...)
	return r
}

func do(c *qt.C, r *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, resp.Resp) {
	c.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	var out resp.Resp
	c.Assert(json.Unmarshal(w.Body.Bytes(), &out), qt.IsNil)
	return w, out
}

func cookies(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, ck := range w.Result().Cookies() {
		out[ck.Name] = ck
	}
	return out
}

func TestAuthenticate(t *testing.T) {
	c := qt.New(t)
	fresh, err := jwter(0).Issue(auth.Principal{UserID: "u1"})
	c.Assert(err, qt.IsNil)
	stale, err := jwter(-2*time.Hour).Issue(auth.Principal{UserID: "u1"})
	c.Assert(err, qt.IsNil)
	ghost, err := jwter(0).Issue(auth.Principal{UserID: "ghost"})
	c.Assert(err, qt.IsNil)

	c.Run("bearer", func(c *qt.C) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+fresh.AccessToken)
		w, out := do(c, engine(jwter(0)), req)
		c.Assert(out.Code, qt.Equals, resp.CodeOK)
		c.Assert(out.Data.(map[string]any)["userId"], qt.Equals, "u1")
		c.Assert(cookies(w), qt.HasLen, 0)
	})

	c.Run("cookie", func(c *qt.C) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: mdw.CookieAccess, Value: fresh.AccessToken})
		_, out := do(c, engine(jwter(0)), req)
		c.Assert(out.Code, qt.Equals, resp.CodeOK)
	})

	c.Run("missing token", func(c *qt.C) {
		_, out := do(c, engine(jwter(0)), httptest.NewRequest(http.MethodGet, "/me", nil))
		c.Assert(out.Code, qt.Equals, resp.CodeUnauthorized)
		c.Assert(out.Msg, qt.Equals, "missing token")
	})

	c.Run("garbage token", func(c *qt.C) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		_, out := do(c, engine(jwter(0)), req)
		c.Assert(out.Code, qt.Equals, resp.CodeUnauthorized)
		c.Assert(out.Msg, qt.Equals, "invalid token")
	})

	c.Run("refresh token is not an access token", func(c *qt.C) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+fresh.RefreshToken)
		_, out := do(c, engine(jwter(0)), req)
		c.Assert(out.Code, qt.Equals, resp.CodeUnauthorized)
	})

	c.Run("expired without refresh cookie", func(c *qt.C) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: mdw.CookieAccess, Value: stale.AccessToken})
		_, out := do(c, engine(jwter(0)), req)
		c.Assert(out.Code, qt.Equals, resp.CodeUnauthorized)
		c.Assert(out.Msg, qt.Equals, "token expired")
	})

	c.Run("expired then refreshed", func(c *qt.C) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: mdw.CookieAccess, Value: stale.AccessToken})
		req.AddCookie(&http.Cookie{Name: mdw.CookieRefresh, Value: stale.RefreshToken})
		w, out := do(c, engine(jwter(0)), req)
		c.Assert(out.Code, qt.Equals, resp.CodeOK)
		c.Assert(out.Data.(map[string]any)["userId"], qt.Equals, "u1")

		cks := cookies(w)
		c.Assert(cks[mdw.CookieAccess], qt.IsNotNil)
		c.Assert(cks[mdw.CookieAccess].Value, qt.Not(qt.Equals), stale.AccessToken)
		c.Assert(cks[mdw.CookieAccess].HttpOnly, qt.IsTrue)
		c.Assert(cks[mdw.CookieAccess].Secure, qt.IsTrue)
		c.Assert(cks[mdw.CookieAccess].SameSite, qt.Equals, http.SameSiteLaxMode)
		c.Assert(cks[mdw.CookieRefresh], qt.IsNotNil)

		p, err := jwter(0).Verify(cks[mdw.CookieAccess].Value)
		c.Assert(err, qt.IsNil)
		c.Assert(p.UserID, qt.Equals, "u1")
	})

	c.Run("only refresh cookie", func(c *qt.C) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: mdw.CookieRefresh, Value: fresh.RefreshToken})
		w, out := do(c, engine(jwter(0)), req)
		c.Assert(out.Code, qt.Equals, resp.CodeOK)
		c.Assert(cookies(w)[mdw.CookieAccess], qt.IsNotNil)
	})

	c.Run("refresh failure clears cookies", func(c *qt.C) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: mdw.CookieAccess, Value: stale.AccessToken})
		req.AddCookie(&http.Cookie{Name: mdw.CookieRefresh, Value: stale.RefreshToken})
		w, out := do(c, engine(failingRefresher{}), req)
		c.Assert(out.Code, qt.Equals, resp.CodeUnauthorized)
		c.Assert(out.Msg, qt.Equals, "session expired")

		cks := cookies(w)
		for _, name := range []string{mdw.CookieAccess, mdw.CookieRefresh} {
			c.Assert(cks[name], qt.IsNotNil, qt.Commentf("cookie %s", name))
			c.Assert(cks[name].MaxAge, qt.Equals, -1)
			c.Assert(cks[name].Value, qt.Equals, "")
		}
	})

	c.Run("unknown user", func(c *qt.C) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+ghost.AccessToken)
		_, out := do(c, engine(jwter(0)), req)
		c.Assert(out.Code, qt.Equals, resp.CodeUnauthorized)
	})
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		uid  string
		code int
	}{
		{"u1", resp.CodeForbidden},
		{"u2", resp.CodeOK},
	}
	for _, tt := range tests {
		t.Run(tt.uid, func(t *testing.T) {
			c := qt.New(t)
			toks, err := jwter(0).Issue(auth.Principal{UserID: tt.uid})
			c.Assert(err, qt.IsNil)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", "Bearer "+toks.AccessToken)
			_, out := do(c, engine(jwter(0), mdw.RequireRole(domain.RoleAdmin)), req)
			c.Assert(out.Code, qt.Equals, tt.code)
		})
	}
}

func TestParseSameSite(t *testing.T) {
	c := qt.New(t)
	c.Assert(mdw.ParseSameSite("Strict"), qt.Equals, http.SameSiteStrictMode)
	c.Assert(mdw.ParseSameSite("none"), qt.Equals, http.SameSiteNoneMode)
	c.Assert(mdw.ParseSameSite(""), qt.Equals, http.SameSiteLaxMode)
}

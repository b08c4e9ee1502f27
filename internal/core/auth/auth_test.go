package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"bugboard/internal/core/auth"
)

func newJWTer() *auth.JWTer {
	return &auth.JWTer{
		Secret:     []byte("test-secret"),
		Issuer:     "bugboard",
		TTL:        15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
}

func TestIssueAndVerify(t *testing.T) {
	c := qt.New(t)
	j := newJWTer()

	toks, err := j.Issue(auth.Principal{UserID: "u1", Email: "ada@example.com", Role: "Standard"})
	c.Assert(err, qt.IsNil)

	p, err := j.Verify(toks.AccessToken)
	c.Assert(err, qt.IsNil)
	c.Assert(p, qt.DeepEquals, &auth.Principal{UserID: "u1", Subject: "u1", Email: "ada@example.com", Role: "Standard"})

	_, err = j.Verify(toks.RefreshToken)
	c.Assert(errors.Is(err, auth.ErrTokenInvalid), qt.IsTrue)

	_, err = j.Verify(toks.AccessToken + "x")
	c.Assert(errors.Is(err, auth.ErrTokenInvalid), qt.IsTrue)

	other := newJWTer()
	other.Issuer = "someone-else"
	_, err = other.Verify(toks.AccessToken)
	c.Assert(errors.Is(err, auth.ErrTokenInvalid), qt.IsTrue)
}

func TestExpiredAccessTokenIsDistinct(t *testing.T) {
	c := qt.New(t)
	j := newJWTer()
	j.Now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	toks, err := j.Issue(auth.Principal{UserID: "u1"})
	c.Assert(err, qt.IsNil)

	_, err = newJWTer().Verify(toks.AccessToken)
	c.Assert(errors.Is(err, auth.ErrTokenExpired), qt.IsTrue)

	// refresh token 仍在有效期内
	fresh, err := newJWTer().Refresh(context.Background(), toks.RefreshToken)
	c.Assert(err, qt.IsNil)
	p, err := newJWTer().Verify(fresh.AccessToken)
	c.Assert(err, qt.IsNil)
	c.Assert(p.UserID, qt.Equals, "u1")
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	c := qt.New(t)
	j := newJWTer()
	toks, err := j.Issue(auth.Principal{UserID: "u1"})
	c.Assert(err, qt.IsNil)

	_, err = j.Refresh(context.Background(), toks.AccessToken)
	c.Assert(errors.Is(err, auth.ErrTokenInvalid), qt.IsTrue)
	c.Assert(errors.Is(err, auth.ErrRefreshRejected), qt.IsTrue)
}

func idpServer(c *qt.C, reply func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(reply))
	c.Cleanup(srv.Close)
	return srv
}

func TestOAuth2Refresher(t *testing.T) {
	c := qt.New(t)
	var gotGrant, gotRefresh string
	srv := idpServer(c, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotGrant, gotRefresh = r.PostForm.Get("grant_type"), r.PostForm.Get("refresh_token")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "new-access", "token_type": "Bearer", "expires_in": 900,
		})
	})

	r := auth.NewOAuth2Refresher("client", "secret", srv.URL)
	toks, err := r.Refresh(context.Background(), "old-refresh")
	c.Assert(err, qt.IsNil)
	c.Assert(gotGrant, qt.Equals, "refresh_token")
	c.Assert(gotRefresh, qt.Equals, "old-refresh")
	c.Assert(toks.AccessToken, qt.Equals, "new-access")
	c.Assert(toks.RefreshToken, qt.Equals, "old-refresh")
	c.Assert(toks.AccessExpiry.After(time.Now()), qt.IsTrue)
}

func TestOAuth2RefresherRejected(t *testing.T) {
	c := qt.New(t)
	srv := idpServer(c, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	})

	_, err := auth.NewOAuth2Refresher("client", "secret", srv.URL).Refresh(context.Background(), "revoked")
	c.Assert(errors.Is(err, auth.ErrRefreshFailed), qt.IsTrue)
}

func TestChainFallsThrough(t *testing.T) {
	c := qt.New(t)
	srv := idpServer(c, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"from-idp","token_type":"Bearer","refresh_token":"rotated"}`))
	})
	j := newJWTer()
	chain := auth.Chain{j, auth.NewOAuth2Refresher("client", "secret", srv.URL)}

	// 本地 refresh token 由 JWTer 处理
	local, err := j.Issue(auth.Principal{UserID: "u1"})
	c.Assert(err, qt.IsNil)
	toks, err := chain.Refresh(context.Background(), local.RefreshToken)
	c.Assert(err, qt.IsNil)
	c.Assert(toks.AccessToken, qt.Not(qt.Equals), "from-idp")

	// 其它交给身份提供方
	toks, err = chain.Refresh(context.Background(), "opaque-idp-token")
	c.Assert(err, qt.IsNil)
	c.Assert(toks.AccessToken, qt.Equals, "from-idp")
	c.Assert(toks.RefreshToken, qt.Equals, "rotated")

	_, err = auth.Chain{}.Refresh(context.Background(), "x")
	c.Assert(errors.Is(err, auth.ErrRefreshFailed), qt.IsTrue)
}

func TestChainStopsOnLocalToken(t *testing.T) {
	c := qt.New(t)
	var hits int
	srv := idpServer(c, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"from-idp","token_type":"Bearer"}`))
	})
	chain := auth.Chain{newJWTer(), auth.NewOAuth2Refresher("client", "secret", srv.URL)}

	old := newJWTer()
	old.Now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expired, err := old.Issue(auth.Principal{UserID: "u1"})
	c.Assert(err, qt.IsNil)
	fresh, err := newJWTer().Issue(auth.Principal{UserID: "u1"})
	c.Assert(err, qt.IsNil)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "expired refresh", token: expired.RefreshToken, wantErr: auth.ErrTokenExpired},
		{name: "access as refresh", token: fresh.AccessToken, wantErr: auth.ErrTokenInvalid},
	}
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			_, err := chain.Refresh(context.Background(), tt.token)
			c.Assert(err, qt.ErrorIs, auth.ErrRefreshRejected)
			c.Assert(err, qt.ErrorIs, tt.wantErr)
		})
	}
	c.Assert(hits, qt.Equals, 0)

	// 别的 issuer 签的过期 token 不算本地的，照常交给身份提供方
	foreign := newJWTer()
	foreign.Issuer = "idp"
	foreign.Now = old.Now
	other, err := foreign.Issue(auth.Principal{UserID: "u1"})
	c.Assert(err, qt.IsNil)
	toks, err := chain.Refresh(context.Background(), other.RefreshToken)
	c.Assert(err, qt.IsNil)
	c.Assert(toks.AccessToken, qt.Equals, "from-idp")
	c.Assert(hits, qt.Equals, 1)
}

package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// Refresher 用 refresh token 换新的 token 对
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
}

var ErrRefreshFailed = errors.New("refresh failed")

// OAuth2Refresher 走身份提供方 token 端点的 refresh_token grant
type OAuth2Refresher struct {
	cfg *oauth2.Config
}

func NewOAuth2Refresher(clientID, clientSecret, tokenURL string) *OAuth2Refresher {
	return &OAuth2Refresher{cfg: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}}
}

// Refresh 需要自定义 http.Client 时通过 ctx 传 oauth2.HTTPClient
func (r *OAuth2Refresher) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	tok, err := r.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrRefreshFailed)
	}
	out := &Tokens{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, AccessExpiry: tok.Expiry}
	// 身份提供方不轮换时沿用旧的
	if out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}
	return out, nil
}

// Chain 依次尝试，第一个成功的生效（本地 refresh token 优先，其次身份提供方）。
// 本地签发但已过期或类型不对的 token 不会再发给身份提供方。
type Chain []Refresher

func (c Chain) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	err := ErrRefreshFailed
	for _, r := range c {
		if r == nil {
			continue
		}
		t, e := r.Refresh(ctx, refreshToken)
		if e == nil {
			return t, nil
		}
		if errors.Is(e, ErrRefreshRejected) {
			return nil, e
		}
		err = e
	}
	return nil, err
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")

	// ErrRefreshRejected 本地签发的 token 不能再刷新，Chain 遇到它就停
	ErrRefreshRejected = errors.New("refresh rejected")
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims access/refresh 共用；UID 只在本地签发的 token 上出现
type Claims struct {
	UID   string `json:"uid,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	Typ   string `json:"typ"`
	jwt.RegisteredClaims
}

// Principal 一次请求的已认证身份
type Principal struct {
	UserID  string `json:"uid,omitempty"`
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Role    string `json:"role"`
}

// Tokens 一对新签发的 token
type Tokens struct {
	AccessToken   string    `json:"accessToken"`
	RefreshToken  string    `json:"refreshToken,omitempty"`
	AccessExpiry  time.Time `json:"accessExpiry"`
	RefreshExpiry time.Time `json:"refreshExpiry,omitempty"`
}

type JWTer struct {
	Secret     []byte
	Issuer     string
	TTL        time.Duration
	RefreshTTL time.Duration
	// Now 测试里用来签发过期 token
	Now func() time.Time
}

func (j *JWTer) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *JWTer) sign(p Principal, typ string, ttl time.Duration) (string, time.Time, error) {
	now := j.now()
	exp := now.Add(ttl)
	claims := Claims{
		UID:   p.UserID,
		Email: p.Email,
		Name:  p.Name,
		Role:  p.Role,
		Typ:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(j.Secret)
	return s, exp, err
}

// Issue 签发 access + refresh
func (j *JWTer) Issue(p Principal) (*Tokens, error) {
	if p.Subject == "" {
		p.Subject = p.UserID
	}
	at, atExp, err := j.sign(p, TypeAccess, j.TTL)
	if err != nil {
		return nil, err
	}
	rt, rtExp, err := j.sign(p, TypeRefresh, j.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &Tokens{AccessToken: at, RefreshToken: rt, AccessExpiry: atExp, RefreshExpiry: rtExp}, nil
}

func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer), jwt.WithLeeway(60*time.Second), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, ErrTokenInvalid
}

// Verify 只接受 access token；身份提供方签发的 token 可以不带 typ
func (j *JWTer) Verify(tokenStr string) (*Principal, error) {
	c, err := j.Parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if c.Typ != TypeAccess && c.Typ != "" {
		return nil, fmt.Errorf("%w: not an access token", ErrTokenInvalid)
	}
	return c.principal(), nil
}

// Refresh 用本地签发的 refresh token 换一对新 token（轮换）
func (j *JWTer) Refresh(_ context.Context, refreshToken string) (*Tokens, error) {
	c, err := j.Parse(refreshToken)
	if errors.Is(err, ErrTokenExpired) && j.issuedRefresh(refreshToken) {
		return nil, fmt.Errorf("%w: %w", ErrRefreshRejected, err)
	}
	if err != nil {
		return nil, err
	}
	if c.Typ != TypeRefresh {
		return nil, fmt.Errorf("%w: %w: not a refresh token", ErrRefreshRejected, ErrTokenInvalid)
	}
	return j.Issue(*c.principal())
}

// issuedRefresh 过期错误出现时签名已经校验过，这里只看 issuer 与 typ
func (j *JWTer) issuedRefresh(tokenStr string) bool {
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &c); err != nil {
		return false
	}
	return c.Issuer == j.Issuer && c.Typ == TypeRefresh
}

func (c *Claims) principal() *Principal {
	return &Principal{UserID: c.UID, Subject: c.Subject, Email: c.Email, Name: c.Name, Role: c.Role}
}

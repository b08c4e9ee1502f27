package ez_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bugboard/internal/domain"
	httpez "bugboard/internal/transport/http/ez"
	resp "bugboard/internal/transport/http/response"
)

type echoIn struct {
	Name string `json:"name" binding:"required"`
}

func newEngine(userID string) (*gin.Engine, httpez.EZ) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/v1")
	g.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("userId", userID)
		}
	})
	return r, httpez.New(g, zap.NewNop())
}

func serve(c *qt.C, r *gin.Engine, req *http.Request) resp.Resp {
	c.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	var out resp.Resp
	c.Assert(json.Unmarshal(w.Body.Bytes(), &out), qt.IsNil)
	return out
}

func TestRegisterAction(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		body     string
		err      error
		wantCode int
		wantMsg  string
		wantKind string
	}{
		{name: "ok", userID: "u1", body: `{"name":"ada"}`, wantCode: resp.CodeOK, wantMsg: "ada"},
		{name: "no user", body: `{"name":"ada"}`, wantCode: resp.CodeUnauthorized},
		{name: "bad json", userID: "u1", body: `{`, wantCode: resp.CodeBadRequest},
		{name: "missing field", userID: "u1", body: `{}`, wantCode: resp.CodeBadRequest},
		{name: "domain error", userID: "u1", body: `{"name":"x"}`, err: domain.ErrProjectNotFound, wantCode: resp.CodeNotFound, wantKind: "not_found"},
		{name: "action error", userID: "u1", body: `{"name":"x"}`, err: httpez.Internal("issue token failed", errors.New("boom")), wantCode: resp.CodeServerError, wantMsg: "issue token failed"},
		{name: "plain error", userID: "u1", body: `{"name":"x"}`, err: errors.New("db gone"), wantCode: resp.CodeServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			r, e := newEngine(tt.userID)
			httpez.RegisterAction(e, httpez.Action[echoIn, map[string]string]{
				Method: http.MethodPost,
				Path:   "/echo",
				Binder: httpez.BindJSON,
				Auth:   true,
				Handler: func(_ *gin.Context, in *echoIn) (map[string]string, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return map[string]string{"name": in.Name}, nil
				},
			})
			req := httptest.NewRequest(http.MethodPost, "/v1/echo", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			out := serve(c, r, req)
			c.Assert(out.Code, qt.Equals, tt.wantCode)
			c.Assert(out.Kind, qt.Equals, tt.wantKind)
			if tt.wantCode == resp.CodeOK {
				c.Assert(out.Data, qt.DeepEquals, map[string]any{"name": tt.wantMsg})
			} else if tt.wantMsg != "" {
				c.Assert(out.Msg, qt.Equals, tt.wantMsg)
			}
			c.Assert(out.Msg, qt.Not(qt.Contains), "db gone")
		})
	}
}

func TestBindQueryAndMethods(t *testing.T) {
	c := qt.New(t)
	r, e := newEngine("u1")
	type q struct {
		Page int `form:"page"`
	}
	httpez.RegisterAction(e, httpez.Action[q, int]{
		Method: http.MethodGet,
		Path:   "/items",
		Binder: httpez.BindQuery,
		Handler: func(_ *gin.Context, in *q) (int, error) {
			return in.Page, nil
		},
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, string]{
		Method: http.MethodDelete,
		Path:   "/items/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (string, error) {
			return c.Param("id"), nil
		},
	})

	out := serve(c, r, httptest.NewRequest(http.MethodGet, "/v1/items?page=3", nil))
	c.Assert(out.Data, qt.Equals, float64(3))
	out = serve(c, r, httptest.NewRequest(http.MethodGet, "/v1/items?page=x", nil))
	c.Assert(out.Code, qt.Equals, resp.CodeBadRequest)
	out = serve(c, r, httptest.NewRequest(http.MethodDelete, "/v1/items/42", nil))
	c.Assert(out.Data, qt.Equals, "42")
}

func TestFiles(t *testing.T) {
	c := qt.New(t)
	r, e := newEngine("u1")
	type form struct {
		Text string `form:"text"`
	}
	httpez.RegisterAction(e, httpez.Action[form, []string]{
		Method: http.MethodPost,
		Path:   "/upload",
		Binder: httpez.BindMultipart,
		Handler: func(c *gin.Context, in *form) ([]string, error) {
			parts, err := httpez.Files(c, "files")
			if err != nil {
				return nil, err
			}
			names := []string{in.Text}
			for _, p := range parts {
				names = append(names, p.Filename)
			}
			return names, nil
		},
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	c.Assert(mw.WriteField("text", "hello"), qt.IsNil)
	for _, n := range []string{"a.png", "b.pdf"} {
		fw, err := mw.CreateFormFile("files", n)
		c.Assert(err, qt.IsNil)
		_, err = fw.Write([]byte("x"))
		c.Assert(err, qt.IsNil)
	}
	c.Assert(mw.Close(), qt.IsNil)
	req := httptest.NewRequest(http.MethodPost, "/v1/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	out := serve(c, r, req)
	c.Assert(out.Code, qt.Equals, resp.CodeOK)
	c.Assert(out.Data, qt.DeepEquals, []any{"hello", "a.png", "b.pdf"})
}

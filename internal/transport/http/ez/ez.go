package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	resp "bugboard/internal/transport/http/response"
	"bugboard/internal/upload"
)

/* ================== 轻封装 ================== */

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

func (e EZ) GET(path string, h func(c *gin.Context) (any, error)) {
	e.g.GET(path, func(c *gin.Context) {
		data, err := h(c)
		if err != nil {
			e.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(data))
	})
}

/* ================== Action（一行注册） ================== */

// 绑定方式
type Binder string

const (
	BindJSON      Binder = "json"      // 从 JSON 绑定
	BindQuery     Binder = "query"     // 从 URL ?a=b 绑定
	BindMultipart Binder = "multipart" // multipart/form-data 普通字段，文件用 Files 取
	BindNone      Binder = "none"      // 不绑定，自己从 c.Param / c.PostForm 取
)

// 统一错误对象（配合 resp.Error(int, msg)）
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string // "GET" | "POST" | "PUT" | "DELETE"
	Path    string // 例："/auth/login"、"/issues/:id"
	Binder  Binder // 绑定方式
	Auth    bool   // 是否要求登录（检查 userId）；角色由路由分组的 RequireRole 管
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 在当前 EZ 下注册动作接口；事务由 service 层自己开
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权
		if a.Auth && c.GetString("userId") == "" {
			c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		case BindMultipart:
			bindErr = c.ShouldBindWith(&in, binding.FormMultipart)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, bindErr.Error()))
			return
		}

		// 3) 执行
		out, err := a.Handler(c, &in)
		if err != nil {
			e.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

// fail 统一错误映射：AErr 原样，domain 错误按大类，其它 500
func (e EZ) fail(c *gin.Context, err error) {
	var ae *AErr
	if errors.As(err, &ae) {
		if ae.Code >= resp.CodeServerError {
			e.log.Error("action failed", zap.String("path", c.FullPath()), zap.String("rid", c.GetString("rid")), zap.Error(err))
		}
		c.JSON(http.StatusOK, resp.Error(ae.Code, ae.Error()))
		return
	}
	r := resp.FromErr(err)
	if r.Code >= resp.CodeServerError {
		e.log.Error("action failed", zap.String("path", c.FullPath()), zap.String("rid", c.GetString("rid")), zap.Error(err))
	}
	c.JSON(http.StatusOK, r)
}

// Files 取 multipart 表单里的文件；非 multipart 请求返回空
func Files(c *gin.Context, field string) ([]upload.Part, error) {
	if !strings.HasPrefix(c.ContentType(), binding.MIMEMultipartPOSTForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, BadRequest("invalid multipart form: " + err.Error())
	}
	return upload.FromFileHeaders(form.File[field]), nil
}

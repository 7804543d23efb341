// Package pixiantest 提供一个进程内的假 Pixian API，用于测试和 -dry-run。
package pixiantest

import (
	"encoding/base64"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/chaos-io/pixian/util"
)

const Path = "/api/v2/remove-background"

// Request 服务端收到的一次请求
type Request struct {
	User     string
	Fields   map[string]string
	FileName string
	File     []byte
}

func init() {
	gin.SetMode(gin.TestMode)
}

type Server struct {
	*httptest.Server

	mu          sync.Mutex
	requests    []Request
	status      int
	contentType string
	body        []byte
}

// NewServer 只接受 apiID/apiSecret 的 basic auth，其余返回 401
func NewServer(apiID, apiSecret string) *Server {
	s := &Server{}
	r := gin.New()
	r.Use(gin.Recovery())
	authorized := r.Group("/", gin.BasicAuth(gin.Accounts{apiID: apiSecret}))
	authorized.POST(Path, s.removeBackground)

	s.Server = httptest.NewServer(r)
	return s
}

// Endpoint 传给 pixian.WithEndpoint
func (s *Server) Endpoint() string {
	return s.URL + Path
}

// SetResponse 固定返回的状态码和响应体；status 为 0 时恢复默认回显
func (s *Server) SetResponse(status int, contentType string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.contentType = contentType
	s.body = body
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) removeBackground(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"status": http.StatusBadRequest, "message": err.Error()}})
		return
	}

	req := Request{
		User:   c.GetString(gin.AuthUserKey),
		Fields: make(map[string]string, len(form.Value)),
	}
	for k, v := range form.Value {
		if len(v) > 0 {
			req.Fields[k] = v[0]
		}
	}
	if files := form.File["image"]; len(files) > 0 {
		req.FileName = files[0].Filename
		f, err := files[0].Open()
		if err == nil {
			req.File, _ = io.ReadAll(f)
			_ = f.Close()
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	status, contentType, body := s.status, s.contentType, s.body
	s.mu.Unlock()

	if status != 0 {
		c.Data(status, contentType, body)
		return
	}

	sources := 0
	if req.File != nil {
		sources++
	}
	if req.Fields["image.base64"] != "" {
		sources++
	}
	if req.Fields["image.url"] != "" {
		sources++
	}
	if sources != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"status": http.StatusBadRequest, "message": "exactly one image input is required"}})
		return
	}

	c.Data(http.StatusOK, "image/png", echo(req))
}

// echo 原样返回上传的图片，URL 输入返回 1x1 透明 PNG
func echo(req Request) []byte {
	if req.File != nil {
		return req.File
	}
	if b64 := req.Fields["image.base64"]; b64 != "" {
		if data, err := base64.StdEncoding.DecodeString(b64); err == nil {
			return data
		}
	}
	data, _ := util.EncodePNG(image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	return data
}

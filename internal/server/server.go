package server

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Tmacphee13/axoserve/internal/assetroot"
)

const (
	AssetsPrefix = "/assets"
	HelloPath    = "/api/hello"

	// DefaultAssetMaxAge is one year; bundler output is content-hashed.
	DefaultAssetMaxAge = 365 * 24 * time.Hour
)

// HelloResponse is the fixed payload of GET /api/hello.
type HelloResponse struct {
	Message string `json:"message"`
}

var hello = HelloResponse{Message: "hello"}

// Options configures a Server.
type Options struct {
	AssetMaxAge time.Duration
	Logger      *log.Logger
}

// Server answers requests for the SPA shell, its static assets and the
// JSON API. It holds no per-request state.
type Server struct {
	root         *assetroot.Root
	logger       *log.Logger
	assetControl string
}

// New builds a Server on top of an opened asset root.
func New(root *assetroot.Root, opts Options) *Server {
	if root == nil {
		panic("server.New: root is nil")
	}
	if opts.AssetMaxAge <= 0 {
		opts.AssetMaxAge = DefaultAssetMaxAge
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Server{
		root:         root,
		logger:       opts.Logger,
		assetControl: "public, max-age=" + strconv.FormatInt(int64(opts.AssetMaxAge/time.Second), 10) + ", immutable",
	}
}

// Router returns the request-handling entry point. It never listens on
// its own; callers mount it on whatever server they run.
func (s *Server) Router() http.Handler {
	r := gin.New()
	// "/assets" and "/api/hello/" are client routes, not redirects.
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.HandleMethodNotAllowed = true

	r.Use(gin.RecoveryWithWriter(s.logger.Writer()))
	r.Use(requestID(), secureHeaders(), accessLog(s.logger))

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		r.Handle(method, "/", s.handleShell)
		r.Handle(method, AssetsPrefix+"/*filepath", s.handleAsset)
		r.Handle(method, HelloPath, s.handleHello)
	}

	r.NoRoute(s.handleFallback)
	r.NoMethod(s.handleMethodNotAllowed)

	return r
}

func (s *Server) handleShell(c *gin.Context) {
	body, err := s.root.Shell()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}

func (s *Server) handleAsset(c *gin.Context) {
	asset, err := s.root.Asset(c.Param("filepath"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Type", asset.ContentType)
	c.Header("Cache-Control", s.assetControl)
	http.ServeContent(c.Writer, c.Request, asset.Name, asset.ModTime, bytes.NewReader(asset.Data))
}

func (s *Server) handleHello(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, hello)
}

// handleFallback serves the shell for unmatched GET and HEAD requests so
// the client-side router can take over. Other methods get a 404.
func (s *Server) handleFallback(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodGet, http.MethodHead:
		s.handleShell(c)
	default:
		s.fail(c, errNotFound)
	}
}

func (s *Server) handleMethodNotAllowed(c *gin.Context) {
	c.Header("Allow", "GET, HEAD")
	s.fail(c, errMethodNotAllowed)
}

var (
	errNotFound         = errors.New("no route")
	errMethodNotAllowed = errors.New("method not allowed")
)

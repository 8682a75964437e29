// Package server exposes an agentexec.Tool over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/netutil"

	"github.com/zhangyunhao116/agentexec"
)

// shutdownTimeout bounds graceful shutdown. Requests still running after it
// are cut off, which cancels their commands.
const shutdownTimeout = 10 * time.Second

// Config configures a Server.
type Config struct {
	// Addr is the TCP address to listen on, e.g. "127.0.0.1:8088".
	Addr string

	// MaxConnections caps concurrently accepted connections. 0 means unlimited.
	MaxConnections int

	// Logger is the structured logger. If nil, a no-op logger is used.
	Logger *slog.Logger
}

// Server serves a Tool over HTTP. The Tool can be replaced at runtime with
// SetTool; in-flight requests keep the Tool they started with.
type Server struct {
	config *Config
	logger *slog.Logger
	tool   atomic.Pointer[agentexec.Tool]
	engine *gin.Engine
}

// execRequest is the body of /v1/exec and /v1/check.
type execRequest struct {
	Command    string `json:"command" binding:"required"`
	WorkingDir string `json:"working_dir"`
}

// execResponse is the body returned by /v1/exec.
type execResponse struct {
	ID     string `json:"id"`
	Result string `json:"result"`
}

// checkResponse is the body returned by /v1/check.
type checkResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message,omitempty"`
}

// New creates a Server for tool. If cfg is nil, default configuration is used.
func New(tool *agentexec.Tool, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{config: cfg, logger: logger}
	s.tool.Store(tool)
	s.engine = s.routes()
	return s
}

// SetTool atomically replaces the Tool used for new requests.
func (s *Server) SetTool(tool *agentexec.Tool) {
	s.tool.Store(tool)
}

// Tool returns the Tool currently serving requests.
func (s *Server) Tool() *agentexec.Tool {
	return s.tool.Load()
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger), securityHeaders(), bodySizeLimit(MaxBodySize))

	r.GET("/healthz", func(c *gin.Context) {
		success(c, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.GET("/tool", s.handleTool)
	v1.POST("/exec", s.handleExec)
	v1.POST("/check", s.handleCheck)
	return r
}

func (s *Server) handleTool(c *gin.Context) {
	success(c, s.Tool().Definition())
}

// bindRequest decodes and checks an exec/check body, writing a 400 on error.
func bindRequest(c *gin.Context) (execRequest, bool) {
	var req execRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return req, false
	}
	if strings.TrimSpace(req.Command) == "" {
		fail(c, http.StatusBadRequest, "command is required")
		return req, false
	}
	return req, true
}

func (s *Server) handleExec(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}
	// The request context ends when the client goes away, which cancels
	// the command.
	result := s.Tool().Execute(c.Request.Context(), req.Command, agentexec.WithWorkingDir(req.WorkingDir))
	success(c, execResponse{
		ID:     c.GetString(requestIDKey),
		Result: result,
	})
}

func (s *Server) handleCheck(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}
	d := s.Tool().Check(req.Command, agentexec.WithWorkingDir(req.WorkingDir))
	success(c, checkResponse{
		Allowed: d.Allowed(),
		Reason:  d.Reason.String(),
		Rule:    d.Rule,
		Message: d.Message(),
	})
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConnections)
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("server started", "addr", ln.Addr().String(), "max_connections", s.config.MaxConnections)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	s.logger.Info("server stopped")
	return err
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

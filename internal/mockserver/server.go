// Package mockserver is a stand-in for the download backend. Jobs advance a fixed step on
// every status query, so a client polling it sees a full download in a few seconds without
// any media tooling installed.
package mockserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

const (
	DefaultAddr = ":5000"
	DefaultStep = 25.0

	// URLs containing this marker produce a job that fails on its first status query.
	FailMarker = "fail"
)

type Options struct {
	// Step is the progress added per status query. Values outside (0, 100] use DefaultStep.
	Step float64
	// Dir holds the generated files. Empty creates a temporary directory.
	Dir    string
	Logger *logrus.Entry
}

type Server struct {
	echo    *echo.Echo
	log     *logrus.Entry
	dir     string
	ownsDir bool
	step    float64

	mu   sync.Mutex
	jobs map[string]*job
}

func New(opts Options) (*Server, error) {
	step := opts.Step
	if step <= 0 || step > 100 {
		step = DefaultStep
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	dir := strings.TrimSpace(opts.Dir)
	owns := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "ytdl-mock-*")
		if err != nil {
			return nil, fmt.Errorf("create mock file directory: %w", err)
		}
		dir = tmp
		owns = true
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create mock file directory %s: %w", dir, err)
	}

	s := &Server{
		log:     log,
		dir:     dir,
		ownsDir: owns,
		step:    step,
		jobs:    map[string]*job{},
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(s.requestLogger)
	s.registerRoutes(e)
	s.echo = e
	return s, nil
}

func (s *Server) registerRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/video-info", s.handleVideoInfo)
	api.POST("/download", s.handleDownload)
	api.GET("/download-status/:id", s.handleStatus)
	api.GET("/download-file", s.handleFile)
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		s.log.WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Request().URL.Path,
			"status": c.Response().Status,
		}).Debug("request")
		return err
	}
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Dir() string {
	return s.dir
}

// ListenAndServe blocks until ctx is done or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if strings.TrimSpace(addr) == "" {
		addr = DefaultAddr
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		if err := s.echo.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("shutdown mock server: %w", err)
		}
		return nil
	}
}

// Close removes the file directory when the server created it.
func (s *Server) Close() error {
	if !s.ownsDir {
		return nil
	}
	return os.RemoveAll(s.dir)
}

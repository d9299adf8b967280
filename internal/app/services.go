package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/applywizz/portal/internal/app/system"
	"github.com/applywizz/portal/pkg/logger"
)

// httpService serves the API until stopped.
type httpService struct {
	srv  *http.Server
	log  *logger.Logger
	errs chan error
}

var _ system.Service = (*httpService)(nil)

func newHTTPService(addr string, h http.Handler, log *logger.Logger) *httpService {
	return &httpService{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		log:  log,
		errs: make(chan error, 1),
	}
}

func (s *httpService) Name() string { return "http" }

// Start binds the listener synchronously so a busy port fails startup.
func (s *httpService) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.log.WithField("addr", ln.Addr().String()).Info("HTTP server listening")
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()
	return nil
}

func (s *httpService) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// loopService runs fn in a goroutine with a context cancelled on Stop.
type loopService struct {
	name string
	fn   func(ctx context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (s *loopService) Name() string { return s.name }

func (s *loopService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.fn(runCtx)
	return nil
}

func (s *loopService) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}

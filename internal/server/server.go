package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	Srv *http.Server
	Log *zap.SugaredLogger
}

func NewServer(addr string, handler http.Handler, log *zap.SugaredLogger) *Server {
	return &Server{
		Log: log,
		Srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// RunServer serves until done is closed or receives, then shuts down
// gracefully. Listen errors are returned on errs.
func (s *Server) RunServer(done <-chan struct{}, w *sync.WaitGroup, errs chan<- error) {
	defer w.Done()
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.Log.Infof("Server is listening on %s", s.Srv.Addr)
		if err := s.Srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Log.Errorf("Server failed: %s", err.Error())
			errs <- err
		}
	}()
	select {
	case <-done:
	case <-stopped:
		return
	}
	s.Log.Infoln("Server is stopping...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Srv.Shutdown(ctx); err != nil {
		s.Log.Errorf("Problem with server shutdown: %s", err.Error())
	}
	<-stopped
	s.Log.Infoln("Server is stopped")
}

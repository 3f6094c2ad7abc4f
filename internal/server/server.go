// Package server exposes a namespace store over HTTP so several filepane
// sessions can share one namespace through store.Remote.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/justyntemme/filepane/internal/debug"
	"github.com/justyntemme/filepane/internal/fs"
	"github.com/justyntemme/filepane/internal/logging"
	"github.com/justyntemme/filepane/internal/metrics"
	"github.com/justyntemme/filepane/internal/store"
)

// maxBodySize caps PUT bodies.
const maxBodySize = 8 << 20

// exporter is implemented by stores that can dump the whole namespace.
type exporter interface {
	Export(ctx context.Context) ([]byte, error)
}

// Server serves a store.Store.
type Server struct {
	store store.Store
}

// New creates a server for st.
func New(st store.Store) *Server {
	return &Server{store: st}
}

// Handler returns the HTTP handler with logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET "+store.RouteEntries, s.handleRead)
	mux.HandleFunc("PUT "+store.RouteEntries, s.handleWrite)
	mux.HandleFunc("POST "+store.RouteInit, s.handleInit)
	mux.HandleFunc("GET /api/v1/export", s.handleExport)

	return metrics.Middleware(logging.Middleware(mux))
}

// ListenAndServe serves on addr until ctx is done, then shuts down within
// shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(logging.L()),
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("server listening", logging.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	if err := s.store.EnsureInitialized(r.Context()); err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	path := fs.CleanPath(r.URL.Query().Get("path"))
	debug.Log(debug.SERVER, "read %s", path)

	entries, version, err := s.store.ReadVersion(r.Context(), path)
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, store.EntriesResponse{
		Path:    path,
		Version: version,
		Entries: entries,
	})
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	path := fs.CleanPath(r.URL.Query().Get("path"))

	var req store.WriteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Entries == nil {
		req.Entries = []fs.Entry{}
	}

	logging.WithContext(r.Context()).Debug("write entries",
		logging.String("path", path), logging.Int("entries", len(req.Entries)))

	var err error
	if req.Version != nil {
		debug.Log(debug.SERVER, "write %s if version %d (%d entries)", path, *req.Version, len(req.Entries))
		err = s.store.WriteIfVersion(r.Context(), path, *req.Version, req.Entries)
	} else {
		debug.Log(debug.SERVER, "write %s (%d entries)", path, len(req.Entries))
		err = s.store.Write(r.Context(), path, req.Entries)
	}
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ex, ok := s.store.(exporter)
	if !ok {
		s.sendError(w, http.StatusNotImplemented, "store cannot export")
		return
	}
	data, err := ex.Export(r.Context())
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// sendStoreError maps store errors to status codes.
func (s *Server) sendStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrConflict):
		s.sendError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrStorage):
		if !errors.Is(err, store.ErrQuotaExceeded) {
			logging.WithContext(r.Context()).Error("storage medium failed",
				logging.String("path", r.URL.Query().Get("path")), logging.Err(err))
		}
		s.sendError(w, http.StatusInsufficientStorage, err.Error())
	default:
		logging.WithContext(r.Context()).Error("store request failed",
			logging.String("path", r.URL.Query().Get("path")), logging.Err(err))
		s.sendError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	s.sendJSON(w, code, store.ErrorResponse{Error: message})
}

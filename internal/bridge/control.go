package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"

	"taskbridge/internal/config"
)

// maxControlBodyBytes caps inbound control message bodies. Task payloads
// are small; anything larger is garbage.
const maxControlBodyBytes = 1 << 20

// ControlServer accepts lifecycle events and control messages over loopback
// HTTP. The host UI is a browser surface, so responses carry CORS headers
// for the configured origins.
// Params: listen address, bound listener, HTTP server, and logger.
// Returns: runnable control server instance.
type ControlServer struct {
	listen string
	ln     net.Listener
	server *http.Server
	logger *slog.Logger
}

// NewControlServer creates a control server and binds to the listen address.
// Params: cfg control listener settings; dispatcher event sink; logger root
// logger.
// Returns: server instance or bind error.
func NewControlServer(cfg config.ControlConfig, dispatcher *Dispatcher, logger *slog.Logger) (*ControlServer, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("listen %q: %w", cfg.Listen, err)
	}

	mux := http.NewServeMux()
	handler := messageHandler(dispatcher, logger)
	mux.HandleFunc("/events", handler)
	mux.HandleFunc("/control", handler)

	wrapper := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	server := &http.Server{
		Handler:           wrapper.Handler(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &ControlServer{
		listen: cfg.Listen,
		ln:     ln,
		server: server,
		logger: logger,
	}, nil
}

// messageHandler decodes one inbound message and hands it to the dispatcher.
// Malformed or empty messages are dropped without an error status so a
// misbehaving host never sees the bridge as broken.
// Params: dispatcher event sink; logger for drop diagnostics.
// Returns: HTTP handler func.
func messageHandler(dispatcher *Dispatcher, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var event Event
		if err := json.NewDecoder(io.LimitReader(r.Body, maxControlBodyBytes)).Decode(&event); err != nil {
			logger.Debug("dropping malformed control message", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if event.Type == "" {
			logger.Debug("dropping control message without type")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		dispatcher.HandleEvent(event)
		w.WriteHeader(http.StatusAccepted)
	}
}

// Addr returns the bound listener address.
// Params: none.
// Returns: host:port the server accepted on.
func (s *ControlServer) Addr() string {
	return s.ln.Addr().String()
}

// run starts serving and shuts down on context cancellation.
// Params: ctx lifecycle context.
// Returns: nil on graceful stop; error on early serve failures.
func (s *ControlServer) run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(s.ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		err := <-errCh
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.logger.Error("control server stopped unexpectedly", slog.String("listen", s.listen), slog.String("error", err.Error()))
		return err
	}
}

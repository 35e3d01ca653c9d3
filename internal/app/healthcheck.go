package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// moduleStatus is one entry of the /modules endpoint.
type moduleStatus struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	BasePath string `json:"base_path"`
	Library  string `json:"library,omitempty"`
}

// healthHandler answers liveness probes.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// modulesHandler lists the loaded modules in load order.
func (a *App) modulesHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Modules endpoint hit.", "remote_addr", r.RemoteAddr)
	records := a.host.Records()
	out := make([]moduleStatus, 0, len(records))
	for _, rec := range records {
		out = append(out, moduleStatus{
			Name:     rec.Name(),
			Version:  rec.Version(),
			BasePath: rec.BasePath(),
			Library:  rec.LibraryPath(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		a.logger.Error("Unable to encode module list.", "error", err)
	}
}

// StatusHandler serves /health and /modules.
func (a *App) StatusHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/modules", a.modulesHandler)
	return mux
}

// Serve runs the status server on addr until ctx is cancelled, then shuts
// it down gracefully.
func (a *App) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", addr, err)
	}
	return a.serve(ctx, ln)
}

func (a *App) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.StatusHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Status server starting.", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		a.logger.Error("Status server failed unexpectedly.", "error", err)
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.logger.Info("Shutting down status server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Status server shutdown failed.", "error", err)
		return err
	}
	a.logger.Debug("Status server shut down gracefully.")
	return nil
}

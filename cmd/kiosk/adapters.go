package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lmittmann/tint"

	"github.com/maniegokryz-prog/EndDev/internal/health"
	"github.com/maniegokryz-prog/EndDev/internal/kioskerr"
	"github.com/maniegokryz-prog/EndDev/pkg/detectapi"
	"github.com/maniegokryz-prog/EndDev/pkg/localstore"
	"github.com/maniegokryz-prog/EndDev/pkg/remotestore"
)

func tintHandler(w io.Writer, level *slog.LevelVar) slog.Handler {
	return tint.NewHandler(w, &tint.Options{Level: level})
}

// The detector, embedder, camera, and overlay adapters below are
// placeholders for the external collaborators spec.md §1 puts out of
// scope. A real deployment wires in the vendor face-detector, embedding
// extractor, camera capture device, and overlay renderer here; everything
// upstream of this file (verify.Machine, attendance.Engine, sync.Engine)
// only depends on the pkg/detectapi contracts.

type stubDetector struct{}

func (stubDetector) Detect(ctx context.Context, frame detectapi.Frame) ([]detectapi.Detection, error) {
	return nil, &kioskerr.DetectorFault{Err: errors.New("no face detector wired: configure the real C1 adapter")}
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, frame detectapi.Frame, hint detectapi.Detection) ([512]float32, error) {
	return [512]float32{}, &kioskerr.EmbedderFault{Err: errors.New("no embedding extractor wired: configure the real C2 adapter")}
}

type stubFrameSource struct{}

func (stubFrameSource) NextFrame(ctx context.Context) (detectapi.Frame, error) {
	select {
	case <-ctx.Done():
		return detectapi.Frame{}, ctx.Err()
	case <-time.After(time.Second):
		return detectapi.Frame{}, errors.New("no camera capture device wired: configure the real frame source")
	}
}

// consoleOverlay stands in for the real on-screen overlay, logging status
// and prompting for undertime confirmation on stdin/stdout.
type consoleOverlay struct {
	log *slog.Logger
}

func (c consoleOverlay) ShowFeedback(reason string, faceCount int) {
	if reason == "" {
		return
	}
	c.log.Debug("overlay feedback", slog.String("reason", reason), slog.Int("faces", faceCount))
}

func (c consoleOverlay) ShowCard(code, name, logType string, at time.Time) {
	c.log.Info("verified", slog.String("code", code), slog.String("name", name),
		slog.String("log_type", logType), slog.Time("at", at))
}

func (c consoleOverlay) Confirm(ctx context.Context, message string) (bool, error) {
	fmt.Println(message + " [y/N]")
	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		return false, nil
	}
	return answer == "y" || answer == "Y", nil
}

// healthService wraps internal/health's mux as a suture.Service with a
// bounded shutdown, matching the ≤3s grace period of spec.md §5.
type healthService struct {
	addr   string
	local  *localstore.Store
	remote *remotestore.Store
	log    *slog.Logger
}

func (h healthService) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: h.addr, Handler: health.Handler(h.local, h.remote)}

	errCh := make(chan error, 1)
	go func() {
		h.log.Info("health: listening", slog.String("addr", h.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	}
}

// Package supervisor realizes the "central supervisor that owns all
// background activity" named in spec.md §2/§5 as an explicit
// github.com/thejerf/suture/v4 tree: one suture.Service per long-lived loop,
// restarted on panic/error per suture's restart-intensity policy.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// New builds the kiosk's root supervisor, logging service lifecycle events
// through log via the suture/slog bridge. On shutdown each service gets at
// most 3s to stop before the supervisor abandons it.
func New(log *slog.Logger) *suture.Supervisor {
	return suture.New("kiosk", suture.Spec{
		EventHook: (&sutureslog.Handler{Logger: log}).MustHook(),
		Timeout:   3 * time.Second,
	})
}

// Func adapts a plain context-taking loop function to suture.Service.
type Func func(ctx context.Context) error

func (f Func) Serve(ctx context.Context) error { return f(ctx) }

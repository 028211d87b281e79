package supervisor

import (
	"context"
	"log/slog"

	"github.com/maniegokryz-prog/EndDev/pkg/attendance"
	"github.com/maniegokryz-prog/EndDev/pkg/detectapi"
	"github.com/maniegokryz-prog/EndDev/pkg/verify"
)

// Capture is the capture/verification task of spec.md §5: a single-threaded
// cooperative loop at camera frame rate, owning C4's mutable state. It
// consumes C1 (Detector) and C2 (via verify.Machine), and on a VERIFIED
// decision hands off to C5 (attendance.Engine).
type Capture struct {
	Frames   detectapi.FrameSource
	Detector detectapi.Detector
	Machine  *verify.Machine
	Engine   *attendance.Engine
	Overlay  detectapi.Overlay
	Log      *slog.Logger
}

// Serve implements suture.Service. It blocks reading frames until ctx is
// cancelled; frame read and embedding extraction are the loop's only
// suspension points (spec.md §5).
func (c *Capture) Serve(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := c.Frames.NextFrame(ctx)
		if err != nil {
			c.Log.Warn("frame read failed", slog.Any("error", err))
			continue
		}

		detections, err := c.Detector.Detect(ctx, frame)
		if err != nil {
			// DetectorFault: C4 treats this as a gate failure, not fatal.
			c.Machine.Reset()
			c.Overlay.ShowFeedback("detector_fault", 0)
			continue
		}

		fb, decision, err := c.Machine.Advance(ctx, frame, detections)
		if err != nil {
			c.Log.Warn("verification advance failed", slog.Any("error", err))
			continue
		}
		c.Overlay.ShowFeedback(fb.Reason, fb.FaceCount)

		if decision == nil {
			continue
		}
		c.handleDecision(ctx, decision)
	}
}

func (c *Capture) handleDecision(ctx context.Context, decision *verify.Decision) {
	if decision.Outcome != verify.Verified {
		return
	}

	log, rejection, err := c.Engine.RecordVerification(ctx, decision.EmployeePK, c.Overlay.Confirm)
	if err != nil {
		c.Log.Error("record verification failed", slog.Int64("employee", decision.EmployeePK), slog.Any("error", err))
		return
	}
	if rejection != nil {
		c.Log.Info("attendance event rejected", slog.Int64("employee", decision.EmployeePK), slog.String("reason", rejection.Reason))
		return
	}
	c.Overlay.ShowCard(decision.Code, decision.Name, string(log.LogType), log.LogTime)
}

// Package verify implements C4, the verification state machine: per-frame
// geometry gating, stabilization, a single embedding query per cooldown
// window, and at most one emitted decision per approach.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/maniegokryz-prog/EndDev/internal/clock"
	"github.com/maniegokryz-prog/EndDev/pkg/detectapi"
	"github.com/maniegokryz-prog/EndDev/pkg/faceindex"
)

// State is the machine's current phase.
type State int

const (
	Idle State = iota
	Stabilizing
	Cooldown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Stabilizing:
		return "stabilizing"
	case Cooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Outcome is the kind of decision C4 emits.
type Outcome int

const (
	Verified Outcome = iota
	Unauthorized
)

// Decision is the at-most-one-per-cooldown-window result of a verification
// attempt.
type Decision struct {
	Outcome    Outcome
	EmployeePK int64
	Code       string
	Name       string
	Score      float64
	At         time.Time
}

// Feedback is the per-frame gate evaluation, used by the operator UI
// (spec.md §6) regardless of whether a decision was emitted this frame.
type Feedback struct {
	FaceCount  int
	GatesPass  bool
	Reason     string // "too_far", "too_close", "not_frontal", "low_confidence", "no_face", "multiple_faces", "invalid_frame", ""
	State      State
	Stabilized time.Duration // time remaining until stabilization completes, 0 if already stable
}

// Config is the subset of internal/config.Config the state machine needs.
type Config struct {
	StabilizationDuration time.Duration
	CooldownDuration      time.Duration
	MinFaceRatio          float64
	MaxFaceRatio          float64
	SimilarityThreshold   float64
	MinConfidence         float64
}

const defaultMinConfidence = 0.9

// Machine holds C4's mutable per-process state. It is not safe for
// concurrent use; the capture task owns it exclusively (spec.md §5).
type Machine struct {
	cfg      Config
	clock    clock.Clock
	embedder detectapi.Embedder
	index    *faceindex.Ref
	log      *slog.Logger

	state            State
	stableSince      time.Time
	decisionEmittedAt time.Time
	lastDecision     *Decision
}

// New constructs a Machine. embedder and index are the C2/C3 collaborators;
// index is the hot-reloadable reference published by the pull loop.
func New(cfg Config, clk clock.Clock, embedder detectapi.Embedder, index *faceindex.Ref, log *slog.Logger) *Machine {
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = defaultMinConfidence
	}
	return &Machine{cfg: cfg, clock: clk, embedder: embedder, index: index, log: log, state: Idle}
}

// Reset forces Idle regardless of cooldown, per spec.md §4.2's manual-reset
// edge case.
func (m *Machine) Reset() {
	m.state = Idle
	m.stableSince = time.Time{}
}

// LastDecision returns the most recently emitted decision, or nil if none
// has been emitted yet. Used by the UI to keep showing a card during
// zero-face frames.
func (m *Machine) LastDecision() *Decision {
	return m.lastDecision
}

// State returns the machine's current phase.
func (m *Machine) State() State {
	return m.state
}

// Advance runs one frame through the gates and state transitions, returning
// UI feedback and, at most once per cooldown window, an emitted Decision.
func (m *Machine) Advance(ctx context.Context, frame detectapi.Frame, detections []detectapi.Detection) (Feedback, *Decision, error) {
	now := m.clock.Now()

	if m.state == Cooldown {
		if now.Sub(m.decisionEmittedAt) >= m.cfg.CooldownDuration {
			m.state = Idle
		}
	}

	fb, det, ok := m.evaluateGates(detections, frame)
	fb.State = m.state
	if !ok {
		// A gate failure resets stabilization but never ends a running
		// reverify cooldown early.
		if m.state != Cooldown {
			m.state = Idle
		}
		m.stableSince = time.Time{}
		return fb, nil, nil
	}

	if m.state == Cooldown {
		// Gates hold but we are still within the reverify cooldown: no new
		// stabilization begins, no decision is emitted.
		return fb, nil, nil
	}

	if m.state == Idle {
		m.state = Stabilizing
		m.stableSince = now
	}

	elapsed := now.Sub(m.stableSince)
	if elapsed < m.cfg.StabilizationDuration {
		fb.Stabilized = m.cfg.StabilizationDuration - elapsed
		return fb, nil, nil
	}

	decision, err := m.verify(ctx, frame, det, now)
	if err != nil {
		m.log.Warn("verification attempt failed", slog.Any("error", err))
		m.state = Idle
		m.stableSince = time.Time{}
		return fb, nil, err
	}
	if decision == nil {
		// IndexEmpty: no candidate to verify against. §4.1/§7 require this to
		// silently avoid verification and emit nothing — no cooldown, no
		// clobbering of the last displayed decision. Reset to Idle so the next
		// frame restarts stabilization.
		m.state = Idle
		m.stableSince = time.Time{}
		return fb, nil, nil
	}

	m.state = Cooldown
	m.decisionEmittedAt = now
	m.lastDecision = decision
	return fb, decision, nil
}

func (m *Machine) verify(ctx context.Context, frame detectapi.Frame, det detectapi.Detection, now time.Time) (*Decision, error) {
	vec, err := m.embedder.Embed(ctx, frame, det)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	idx := m.index.Load()
	ref, score, err := idx.Query(vec)
	if err != nil {
		// IndexEmpty: §4.1 says C4 must treat this as "no candidate" and not
		// emit an event at all.
		return nil, nil
	}
	if score > m.cfg.SimilarityThreshold {
		return &Decision{Outcome: Verified, EmployeePK: ref.EmployeePK, Code: ref.Code, Name: ref.Name, Score: score, At: now}, nil
	}
	return &Decision{Outcome: Unauthorized, Score: score, At: now}, nil
}

// evaluateGates runs gates 1-4 in order and returns (feedback, the single
// detection if exactly one, gatesHold).
func (m *Machine) evaluateGates(detections []detectapi.Detection, frame detectapi.Frame) (Feedback, detectapi.Detection, bool) {
	fb := Feedback{FaceCount: len(detections)}

	if len(detections) == 0 {
		fb.Reason = "no_face"
		return fb, detectapi.Detection{}, false
	}
	if len(detections) > 1 {
		fb.Reason = "multiple_faces"
		return fb, detectapi.Detection{}, false
	}
	det := detections[0]

	if det.Confidence < m.cfg.MinConfidence {
		fb.Reason = "low_confidence"
		return fb, det, false
	}

	frameArea := float64(frame.Width) * float64(frame.Height)
	if frameArea <= 0 {
		fb.Reason = "invalid_frame"
		return fb, det, false
	}
	ratio := (det.Box.W * det.Box.H) / frameArea
	if ratio < m.cfg.MinFaceRatio {
		fb.Reason = "too_far"
		return fb, det, false
	}
	if ratio > m.cfg.MaxFaceRatio {
		fb.Reason = "too_close"
		return fb, det, false
	}

	if !frontal(det.Landmarks) {
		fb.Reason = "not_frontal"
		return fb, det, false
	}

	fb.GatesPass = true
	return fb, det, true
}

// frontal implements C4 gate 4: bounded nose offset from the eye midpoint,
// and bounded eye-line tilt, both relative to the inter-eye distance.
func frontal(l detectapi.Landmarks) bool {
	dx := l.RightEye.X - l.LeftEye.X
	dy := l.RightEye.Y - l.LeftEye.Y
	d := math.Hypot(dx, dy)
	if d == 0 {
		return false
	}
	eyeMidX := (l.RightEye.X + l.LeftEye.X) / 2
	noseOffset := math.Abs(l.NoseTip.X - eyeMidX)
	eyeTilt := math.Abs(l.RightEye.Y - l.LeftEye.Y)
	return noseOffset <= 0.15*d && eyeTilt <= 0.12*d
}

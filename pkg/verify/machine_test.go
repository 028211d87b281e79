package verify

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/maniegokryz-prog/EndDev/internal/clock"
	"github.com/maniegokryz-prog/EndDev/pkg/detectapi"
	"github.com/maniegokryz-prog/EndDev/pkg/faceindex"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEmbedder struct {
	vec [512]float32
	err error
}

func (f fakeEmbedder) Embed(ctx context.Context, frame detectapi.Frame, hint detectapi.Detection) ([512]float32, error) {
	return f.vec, f.err
}

func frontalDetection() detectapi.Detection {
	return detectapi.Detection{
		Box:        detectapi.Box{X: 100, Y: 100, W: 100, H: 100},
		Confidence: 0.99,
		Landmarks: detectapi.Landmarks{
			LeftEye:  detectapi.Point{X: 120, Y: 130},
			RightEye: detectapi.Point{X: 180, Y: 130},
			NoseTip:  detectapi.Point{X: 150, Y: 150},
		},
	}
}

func testConfig() Config {
	return Config{
		StabilizationDuration: 500 * time.Millisecond,
		CooldownDuration:      2 * time.Second,
		MinFaceRatio:          0.01,
		MaxFaceRatio:          0.5,
		SimilarityThreshold:   0.8,
	}
}

func unitVec(lead int) [512]float32 {
	var v [512]float32
	v[lead] = 1
	return v
}

func TestAdvanceNoFaceResetsStabilization(t *testing.T) {
	clk := clock.NewFixed(time.Unix(0, 0))
	m := New(testConfig(), clk, fakeEmbedder{}, new(faceindex.Ref), discardLog())

	fb, decision, err := m.Advance(context.Background(), detectapi.Frame{Width: 640, Height: 480}, nil)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if decision != nil {
		t.Fatalf("no face should never emit a decision")
	}
	if fb.Reason != "no_face" {
		t.Fatalf("reason = %q, want no_face", fb.Reason)
	}
	if m.State() != Idle {
		t.Fatalf("state = %v, want Idle", m.State())
	}
}

func TestAdvanceStabilizesThenVerifies(t *testing.T) {
	clk := clock.NewFixed(time.Unix(0, 0))
	idx, err := (faceindex.Indexer{}).Build([]faceindex.Row{
		{EmployeePK: 1, Code: "E1", Name: "Alice", Vector: unitVec(0)},
	})
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	ref := new(faceindex.Ref)
	ref.Store(idx)

	m := New(testConfig(), clk, fakeEmbedder{vec: unitVec(0)}, ref, discardLog())
	frame := detectapi.Frame{Width: 640, Height: 480}
	dets := []detectapi.Detection{frontalDetection()}

	fb, decision, err := m.Advance(context.Background(), frame, dets)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if decision != nil {
		t.Fatalf("first passing frame should only start stabilization, not emit a decision")
	}
	if m.State() != Stabilizing {
		t.Fatalf("state = %v, want Stabilizing", m.State())
	}
	if fb.Stabilized <= 0 {
		t.Fatalf("Stabilized = %v, want > 0 while still stabilizing", fb.Stabilized)
	}

	clk.Advance(testConfig().StabilizationDuration)
	_, decision, err = m.Advance(context.Background(), frame, dets)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if decision == nil {
		t.Fatalf("stabilization elapsed: want an emitted decision")
	}
	if decision.Outcome != Verified || decision.EmployeePK != 1 {
		t.Fatalf("decision = %+v, want Verified employee 1", decision)
	}
	if m.State() != Cooldown {
		t.Fatalf("state after decision = %v, want Cooldown", m.State())
	}

	// Still within cooldown: gates passing again must not emit a second decision.
	_, decision, err = m.Advance(context.Background(), frame, dets)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if decision != nil {
		t.Fatalf("decision emitted twice within one cooldown window")
	}

	clk.Advance(testConfig().CooldownDuration)
	if _, _, err := m.Advance(context.Background(), frame, dets); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if m.State() != Stabilizing {
		t.Fatalf("state after cooldown expiry + passing gates = %v, want Stabilizing", m.State())
	}
}

func TestAdvanceEmptyIndexYieldsNoDecision(t *testing.T) {
	clk := clock.NewFixed(time.Unix(0, 0))
	m := New(testConfig(), clk, fakeEmbedder{vec: unitVec(0)}, new(faceindex.Ref), discardLog())
	frame := detectapi.Frame{Width: 640, Height: 480}
	dets := []detectapi.Detection{frontalDetection()}

	// Seed a previously emitted decision so we can check the empty-index path
	// never clobbers it.
	want := &Decision{Outcome: Verified, EmployeePK: 7, Code: "E007", Score: 0.9}
	m.lastDecision = want

	if _, _, err := m.Advance(context.Background(), frame, dets); err != nil {
		t.Fatalf("advance: %v", err)
	}
	clk.Advance(testConfig().StabilizationDuration)
	_, decision, err := m.Advance(context.Background(), frame, dets)
	if err != nil {
		t.Fatalf("advance with empty index must not surface an error: %v", err)
	}
	if decision != nil {
		t.Fatalf("empty index must not emit a decision")
	}
	// §4.1/§7: IndexEmpty must silently avoid verification, not impose a
	// reverify cooldown, and not overwrite the last-displayed decision card.
	if m.State() == Cooldown {
		t.Fatalf("empty index must not enter Cooldown")
	}
	if m.LastDecision() != want {
		t.Fatalf("LastDecision() = %+v, want unchanged %+v", m.LastDecision(), want)
	}
}

func TestFrontalGateRejectsTiltedFace(t *testing.T) {
	l := detectapi.Landmarks{
		LeftEye:  detectapi.Point{X: 120, Y: 100},
		RightEye: detectapi.Point{X: 180, Y: 160}, // steep tilt relative to eye distance
		NoseTip:  detectapi.Point{X: 150, Y: 150},
	}
	if frontal(l) {
		t.Fatalf("frontal() should reject a steeply tilted eye line")
	}
}

func TestFrontalGateAcceptsLevelFace(t *testing.T) {
	if !frontal(frontalDetection().Landmarks) {
		t.Fatalf("frontal() should accept a level, centered face")
	}
}

func TestResetClearsStabilization(t *testing.T) {
	clk := clock.NewFixed(time.Unix(0, 0))
	m := New(testConfig(), clk, fakeEmbedder{}, new(faceindex.Ref), discardLog())
	m.state = Stabilizing
	m.stableSince = clk.Now()
	m.Reset()
	if m.State() != Idle {
		t.Fatalf("state after Reset = %v, want Idle", m.State())
	}
}

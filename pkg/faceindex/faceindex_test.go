package faceindex

import (
	"errors"
	"math"
	"testing"

	"github.com/maniegokryz-prog/EndDev/internal/kioskerr"
)

func unitVector(lead int) [Dims]float32 {
	var v [Dims]float32
	v[lead] = 1
	return v
}

func TestIndexQueryEmpty(t *testing.T) {
	var idx *Index
	if _, _, err := idx.Query(unitVector(0)); !errors.As(err, new(kioskerr.IndexEmpty)) {
		t.Fatalf("query on nil index: want IndexEmpty, got %v", err)
	}

	built, err := (Indexer{}).Build(nil)
	if err != nil {
		t.Fatalf("build empty: %v", err)
	}
	if built.N() != 0 {
		t.Fatalf("N() = %d, want 0", built.N())
	}
	if _, _, err := built.Query(unitVector(0)); !errors.As(err, new(kioskerr.IndexEmpty)) {
		t.Fatalf("query on empty index: want IndexEmpty, got %v", err)
	}
}

func TestIndexQueryBestMatch(t *testing.T) {
	rows := []Row{
		{EmployeePK: 1, Code: "E1", Name: "Alice", Vector: unitVector(0)},
		{EmployeePK: 2, Code: "E2", Name: "Bob", Vector: unitVector(1)},
		{EmployeePK: 3, Code: "E3", Name: "Carol", Vector: unitVector(2)},
	}
	idx, err := (Indexer{}).Build(rows)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if idx.N() != 3 {
		t.Fatalf("N() = %d, want 3", idx.N())
	}

	ref, score, err := idx.Query(unitVector(1))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if ref.EmployeePK != 2 {
		t.Fatalf("best match employee = %d, want 2", ref.EmployeePK)
	}
	if math.Abs(score-1) > 1e-6 {
		t.Fatalf("best score = %v, want ~1", score)
	}
}

func TestIndexQueryTieBreaksLowestRow(t *testing.T) {
	rows := []Row{
		{EmployeePK: 10, Vector: unitVector(0)},
		{EmployeePK: 20, Vector: unitVector(0)},
	}
	idx, err := (Indexer{}).Build(rows)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ref, _, err := idx.Query(unitVector(0))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if ref.EmployeePK != 10 {
		t.Fatalf("tie-break winner = %d, want 10 (lowest row index)", ref.EmployeePK)
	}
}

func TestBuildRenormalizesVectors(t *testing.T) {
	var skewed [Dims]float32
	skewed[0], skewed[1] = 3, 4 // norm 5, not unit
	idx, err := (Indexer{}).Build([]Row{{EmployeePK: 1, Vector: skewed}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	_, score, err := idx.Query(skewed)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	// A normalized row dotted with its own un-normalized form yields the
	// vector's own norm, not 1: this pins down that Build re-normalizes
	// rather than trusting the input.
	if math.Abs(score-5) > 1e-4 {
		t.Fatalf("score = %v, want ~5 (row normalized, query raw)", score)
	}
}

func TestRefLoadStore(t *testing.T) {
	var ref Ref
	if ref.Load() != nil {
		t.Fatalf("unpublished Ref should load nil")
	}
	idx, err := (Indexer{}).Build([]Row{{EmployeePK: 1, Vector: unitVector(0)}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ref.Store(idx)
	if ref.Load().N() != 1 {
		t.Fatalf("published Ref should load the stored index")
	}
}

// Package faceindex implements C3, the embedding index: an in-memory dense
// matrix of all enrolled face embeddings paired with per-row employee
// metadata, built at startup, rebuilt after a pull that brings in employee
// changes, and queried once per verification attempt.
//
// The construction shape mirrors the teacher's pkg/ottrecidx: a long-lived
// Indexer that owns shared memory, producing immutable Index snapshots that
// are swapped in atomically so concurrent readers never observe a partial
// rebuild.
package faceindex

import (
	"math"
	"sync/atomic"

	"github.com/maniegokryz-prog/EndDev/internal/kioskerr"
)

// Dims is the fixed embedding vector length (spec.md §3).
const Dims = 512

// EmployeeRef is the metadata carried alongside each row of the matrix.
type EmployeeRef struct {
	EmployeePK int64
	Code       string
	Name       string
}

// Row is one (embedding, employee) pair as loaded from the local store,
// the input to a rebuild.
type Row struct {
	EmployeePK int64
	Code       string
	Name       string
	Vector     [Dims]float32
}

// Index is an immutable snapshot of the embedding matrix. It is safe for
// concurrent read-only use.
type Index struct {
	matrix []float32 // row-major N x Dims, unit-normalized
	meta   []EmployeeRef
	n      int
}

// N returns the number of enrolled embeddings in this snapshot.
func (idx *Index) N() int {
	if idx == nil {
		return 0
	}
	return idx.n
}

// Query returns the best-matching row for a unit-norm query vector q, using
// cosine similarity (a dot product, since both sides are unit norm). Ties
// are broken by the lowest row index. If the index has no rows, IndexEmpty
// is returned.
func (idx *Index) Query(q [Dims]float32) (EmployeeRef, float64, error) {
	if idx == nil || idx.n == 0 {
		return EmployeeRef{}, 0, kioskerr.IndexEmpty{}
	}
	bestRow := 0
	bestScore := dot(idx.matrix[0:Dims], q[:])
	for i := 1; i < idx.n; i++ {
		row := idx.matrix[i*Dims : (i+1)*Dims]
		score := dot(row, q[:])
		if score > bestScore {
			bestScore = score
			bestRow = i
		}
	}
	return idx.meta[bestRow], bestScore, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Indexer builds Index snapshots from rows loaded out of the local store.
// It holds no long-lived shared state of its own (unlike the teacher's
// arena-backed Indexer, embeddings here are already a flat fixed-size array,
// so there is nothing to intern) but keeps the same two-type split so the
// hot-reload contract reads the same way.
type Indexer struct{}

// Build constructs a new Index from rows. Vectors are re-normalized
// defensively (spec.md §3 requires unit norm within 1e-4, but a corrupt or
// stale row should not silently skew results).
func (Indexer) Build(rows []Row) (*Index, error) {
	idx := &Index{
		matrix: make([]float32, len(rows)*Dims),
		meta:   make([]EmployeeRef, len(rows)),
		n:      len(rows),
	}
	for i, r := range rows {
		v := normalize(r.Vector)
		copy(idx.matrix[i*Dims:(i+1)*Dims], v[:])
		idx.meta[i] = EmployeeRef{EmployeePK: r.EmployeePK, Code: r.Code, Name: r.Name}
	}
	return idx, nil
}

func normalize(v [Dims]float32) [Dims]float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	var out [Dims]float32
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Ref is a published, atomically-swappable pointer to the current Index, the
// same role the website's main() plays ad hoc with a sync.Mutex-guarded
// pointer; here it is promoted to a reusable type since both the startup
// hydrate and the pull loop's rebuild publish into it.
type Ref struct {
	p atomic.Pointer[Index]
}

// Load returns the currently published Index (possibly nil if never
// published).
func (r *Ref) Load() *Index {
	return r.p.Load()
}

// Store atomically publishes a new Index. Readers observe either the old or
// the new snapshot, never a partial one.
func (r *Ref) Store(idx *Index) {
	r.p.Store(idx)
}

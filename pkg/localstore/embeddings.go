package localstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/maniegokryz-prog/EndDev/pkg/faceindex"
	"github.com/maniegokryz-prog/EndDev/pkg/model"
)

// InsertEmbedding stores a new, immutable embedding for an employee.
func (s *Store) InsertEmbedding(ctx context.Context, e model.Embedding) (int64, error) {
	blob := encodeVector(e.Vector)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (employee_id, vector, created_at) VALUES (?, ?, ?)
	`, e.EmployeePK, blob, formatTimestamp(e.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("insert embedding for employee %d: %w", e.EmployeePK, err)
	}
	return res.LastInsertId()
}

// LoadIndexRows loads every embedding paired with its employee's identity,
// for active employees only, in the row order faceindex.Indexer.Build wants.
// This is the hydrate query behind C3's "rebuild whenever pulled count or
// any row timestamp changes" contract.
func (s *Store) LoadIndexRows(ctx context.Context) ([]faceindex.Row, error) {
	type joined struct {
		EmployeeID int64  `db:"employee_id"`
		Code       string `db:"code"`
		FirstName  string `db:"first_name"`
		LastName   string `db:"last_name"`
		Vector     []byte `db:"vector"`
	}
	var rows []joined
	err := s.db.SelectContext(ctx, &rows, `
		SELECT emb.employee_id AS employee_id, e.code AS code,
			e.first_name AS first_name, e.last_name AS last_name, emb.vector AS vector
		FROM embeddings emb
		JOIN employees e ON e.id = emb.employee_id
		WHERE LOWER(e.status) = 'active'
	`)
	if err != nil {
		return nil, fmt.Errorf("load index rows: %w", err)
	}
	out := make([]faceindex.Row, 0, len(rows))
	for _, r := range rows {
		vec, err := decodeVector(r.Vector)
		if err != nil {
			return nil, fmt.Errorf("decode vector for employee %d: %w", r.EmployeeID, err)
		}
		out = append(out, faceindex.Row{
			EmployeePK: r.EmployeeID,
			Code:       r.Code,
			Name:       r.FirstName + " " + r.LastName,
			Vector:     vec,
		})
	}
	return out, nil
}

// EmbeddingCount returns the total number of embeddings stored, used to
// decide whether the index needs rebuilding without comparing every row.
func (s *Store) EmbeddingCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM embeddings`); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}

func encodeVector(v [faceindex.Dims]float32) []byte {
	buf := make([]byte, faceindex.Dims*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([faceindex.Dims]float32, error) {
	var v [faceindex.Dims]float32
	if len(b) != faceindex.Dims*4 {
		return v, fmt.Errorf("expected %d bytes, got %d", faceindex.Dims*4, len(b))
	}
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

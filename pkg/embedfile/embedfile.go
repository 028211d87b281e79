// Package embedfile implements the optional embedding-blob fallback format
// from spec.md §6: a codec only. The kiosk hydrates its index from the local
// store; no code in cmd/ reads or writes this format. Per spec.md §9's
// design note, the loose key-value dictionary the
// source persists is represented here as an explicit, fixed-shape,
// length-prefixed binary record instead of a dynamically-typed map.
package embedfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/maniegokryz-prog/EndDev/pkg/faceindex"
)

// magic identifies the file format; version allows the layout to evolve.
const (
	magic   = "KFEF" // Kiosk Face Embedding File
	version = 1
)

// EmployeeInfo is one row's metadata, the declared-field replacement for the
// source's employee_info dict entries.
type EmployeeInfo struct {
	DBID          int64
	EmployeeCode  string
	Name          string
}

// File is the full decoded contents of an embedding blob.
type File struct {
	LastUpdate      time.Time
	TotalEmbeddings int
	UniqueEmployees int
	Info            []EmployeeInfo
	Vectors         [][faceindex.Dims]float32
}

// Write encodes f as a gzip-compressed, self-describing binary blob, the
// same compression library (github.com/klauspost/compress) the teacher uses
// for its own sqlite blob payloads.
func Write(w io.Writer, f File) error {
	if len(f.Info) != len(f.Vectors) {
		return fmt.Errorf("embedfile: info/vector length mismatch: %d vs %d", len(f.Info), len(f.Vectors))
	}
	gz, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
	if err != nil {
		return fmt.Errorf("embedfile: new gzip writer: %w", err)
	}
	bw := bufio.NewWriter(gz)

	if err := writeString(bw, magic); err != nil {
		return err
	}
	if err := writeUint32(bw, version); err != nil {
		return err
	}
	if err := writeUint32(bw, uint32(len(f.Info))); err != nil {
		return err
	}
	if err := writeInt64(bw, f.LastUpdate.Unix()); err != nil {
		return err
	}
	if err := writeUint32(bw, uint32(f.TotalEmbeddings)); err != nil {
		return err
	}
	if err := writeUint32(bw, uint32(f.UniqueEmployees)); err != nil {
		return err
	}
	for _, info := range f.Info {
		if err := writeInt64(bw, info.DBID); err != nil {
			return err
		}
		if err := writeString(bw, info.EmployeeCode); err != nil {
			return err
		}
		if err := writeString(bw, info.Name); err != nil {
			return err
		}
	}
	for _, v := range f.Vectors {
		for _, x := range v {
			if err := writeUint32(bw, math.Float32bits(x)); err != nil {
				return err
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("embedfile: flush: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("embedfile: close gzip writer: %w", err)
	}
	return nil
}

// Read decodes a blob written by Write.
func Read(r io.Reader) (File, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return File{}, fmt.Errorf("embedfile: new gzip reader: %w", err)
	}
	defer gz.Close()
	br := bufio.NewReader(gz)

	gotMagic, err := readString(br)
	if err != nil {
		return File{}, fmt.Errorf("embedfile: read magic: %w", err)
	}
	if gotMagic != magic {
		return File{}, fmt.Errorf("embedfile: bad magic %q", gotMagic)
	}
	ver, err := readUint32(br)
	if err != nil {
		return File{}, fmt.Errorf("embedfile: read version: %w", err)
	}
	if ver != version {
		return File{}, fmt.Errorf("embedfile: unsupported version %d", ver)
	}
	n, err := readUint32(br)
	if err != nil {
		return File{}, fmt.Errorf("embedfile: read count: %w", err)
	}
	lastUpdateUnix, err := readInt64(br)
	if err != nil {
		return File{}, fmt.Errorf("embedfile: read last_update: %w", err)
	}
	total, err := readUint32(br)
	if err != nil {
		return File{}, fmt.Errorf("embedfile: read total_embeddings: %w", err)
	}
	unique, err := readUint32(br)
	if err != nil {
		return File{}, fmt.Errorf("embedfile: read unique_employees: %w", err)
	}

	f := File{
		LastUpdate:      time.Unix(lastUpdateUnix, 0).UTC(),
		TotalEmbeddings: int(total),
		UniqueEmployees: int(unique),
		Info:            make([]EmployeeInfo, n),
		Vectors:         make([][faceindex.Dims]float32, n),
	}
	for i := range f.Info {
		dbID, err := readInt64(br)
		if err != nil {
			return File{}, fmt.Errorf("embedfile: read db_id[%d]: %w", i, err)
		}
		code, err := readString(br)
		if err != nil {
			return File{}, fmt.Errorf("embedfile: read employee_code[%d]: %w", i, err)
		}
		name, err := readString(br)
		if err != nil {
			return File{}, fmt.Errorf("embedfile: read name[%d]: %w", i, err)
		}
		f.Info[i] = EmployeeInfo{DBID: dbID, EmployeeCode: code, Name: name}
	}
	for i := range f.Vectors {
		for j := range f.Vectors[i] {
			bits, err := readUint32(br)
			if err != nil {
				return File{}, fmt.Errorf("embedfile: read vector[%d][%d]: %w", i, j, err)
			}
			f.Vectors[i][j] = math.Float32frombits(bits)
		}
	}
	return f, nil
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeInt64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

func readInt64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

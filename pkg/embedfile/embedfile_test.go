package embedfile

import (
	"bytes"
	"testing"
	"time"

	"github.com/maniegokryz-prog/EndDev/pkg/faceindex"
)

func TestWriteReadRoundTrip(t *testing.T) {
	var v1, v2 [faceindex.Dims]float32
	v1[0], v1[10] = 0.5, -0.25
	v2[511] = 1

	in := File{
		LastUpdate:      time.Unix(1700000000, 0).UTC(),
		TotalEmbeddings: 2,
		UniqueEmployees: 2,
		Info: []EmployeeInfo{
			{DBID: 1, EmployeeCode: "E001", Name: "Ada Lovelace"},
			{DBID: 2, EmployeeCode: "E002", Name: "Grace Hopper"},
		},
		Vectors: [][faceindex.Dims]float32{v1, v2},
	}

	var buf bytes.Buffer
	if err := Write(&buf, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if !out.LastUpdate.Equal(in.LastUpdate) {
		t.Fatalf("LastUpdate = %v, want %v", out.LastUpdate, in.LastUpdate)
	}
	if out.TotalEmbeddings != in.TotalEmbeddings || out.UniqueEmployees != in.UniqueEmployees {
		t.Fatalf("counts = %+v, want %+v", out, in)
	}
	if len(out.Info) != 2 || out.Info[0] != in.Info[0] || out.Info[1] != in.Info[1] {
		t.Fatalf("info = %+v, want %+v", out.Info, in.Info)
	}
	if out.Vectors[0] != v1 || out.Vectors[1] != v2 {
		t.Fatalf("vectors did not round-trip exactly")
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, File{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	corrupted := buf.Bytes()
	corrupted[0] ^= 0xff // corrupt the gzip header, not the logical magic, to prove Read fails closed

	if _, err := Read(bytes.NewReader(corrupted)); err == nil {
		t.Fatalf("read of corrupted blob should fail")
	}
}

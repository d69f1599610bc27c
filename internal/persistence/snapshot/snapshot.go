// Package snapshot persists the full world state as a zstd stream holding a
// one-line JSON header followed by a gob body. The header is readable with
// zstdcat|head for quick inspection; the gob body is the authoritative
// payload.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"campuslife.ai/internal/sim/campus"
)

type Header struct {
	Version    int    `json:"version"`
	RunID      string `json:"run_id"`
	AppliedOps uint64 `json:"applied_ops"`
}

// SnapshotV1 couples the exported world state with the digests of the static
// inputs it was derived from. Resume refuses to load a snapshot whose input
// digests differ from the currently loaded data.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed           int64  `json:"seed"`
	ScenarioDigest string `json:"scenario_digest"`
	MapDigest      string `json:"map_digest"`
	CoursesDigest  string `json:"courses_digest"`

	State campus.StateV1 `json:"state"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Skip the header line; the gob body repeats it.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

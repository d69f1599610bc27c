// Command replay inspects a run offline: it prints snapshot headers and can
// re-apply the recorded operation stream against a fresh world built from the
// same configs, verifying the per-op state digests along the way.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	persistlog "campuslife.ai/internal/persistence/log"
	"campuslife.ai/internal/persistence/snapshot"
	"campuslife.ai/internal/sim/campus"
	"campuslife.ai/internal/sim/campusdata"
	"campuslife.ai/internal/sim/scenario"
)

func main() {
	var (
		snapPath     = flag.String("snapshot", "", "path to .snap.zst (optional)")
		opsDir       = flag.String("ops", "", "ops dir containing ops-*.jsonl.zst (optional)")
		configDir    = flag.String("configs", "./configs", "config directory")
		scenarioPath = flag.String("scenario", "", "scenario yaml path (default: <configs>/scenario.yaml)")
		verify       = flag.Bool("verify", true, "verify recorded state digests while replaying")
	)
	flag.Parse()

	if *snapPath == "" && *opsDir == "" {
		fmt.Fprintln(os.Stderr, "need -snapshot and/or -ops")
		os.Exit(2)
	}

	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d run=%s applied_ops=%d seed=%d calendars=%d bookings=%d grids=%d enrollments=%d emails=%d\n",
			snap.Header.Version, snap.Header.RunID, snap.Header.AppliedOps, snap.Seed,
			len(snap.State.Calendars), len(snap.State.Bookings), len(snap.State.Grids),
			len(snap.State.Enrollments), len(snap.State.Emails))
	}

	if *opsDir == "" {
		return
	}

	sp := strings.TrimSpace(*scenarioPath)
	if sp == "" {
		sp = filepath.Join(*configDir, "scenario.yaml")
		if _, err := os.Stat(sp); err != nil {
			sp = ""
		}
	}
	cfg, err := scenario.Load(sp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load scenario:", err)
		os.Exit(1)
	}
	data, err := campusdata.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load campus data:", err)
		os.Exit(1)
	}
	w, err := campus.New(cfg, data)
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}

	files, err := listOpFiles(*opsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list ops:", err)
		os.Exit(1)
	}

	var applied, mismatches int
	for _, f := range files {
		if err := replayFile(f, w, *verify, &applied, &mismatches); err != nil {
			fmt.Fprintf(os.Stderr, "replay %s: %v\n", filepath.Base(f), err)
			os.Exit(1)
		}
	}
	fmt.Printf("replayed %d op(s), %d digest mismatch(es), final digest=%s\n", applied, mismatches, w.Digest())
	if mismatches > 0 {
		os.Exit(1)
	}
}

func replayFile(path string, w *campus.World, verify bool, applied, mismatches *int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e persistlog.OpEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("bad entry: %w", err)
		}
		res := w.Apply(e.Op, e.Args)
		*applied++
		if res.Status != e.Status {
			fmt.Fprintf(os.Stderr, "seq=%d op=%s status recorded=%s replayed=%s\n", e.Seq, e.Op, e.Status, res.Status)
			*mismatches++
			continue
		}
		if verify && e.Digest != "" && w.Digest() != e.Digest {
			fmt.Fprintf(os.Stderr, "seq=%d op=%s digest mismatch\n", e.Seq, e.Op)
			*mismatches++
		}
	}
	return sc.Err()
}

func listOpFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "ops-") || !strings.HasSuffix(name, ".jsonl.zst") {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}

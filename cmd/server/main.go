package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"campuslife.ai/internal/persistence/journal"
	persistlog "campuslife.ai/internal/persistence/log"
	"campuslife.ai/internal/persistence/snapshot"
	"campuslife.ai/internal/sim/campus"
	"campuslife.ai/internal/sim/campusdata"
	"campuslife.ai/internal/sim/scenario"
	"campuslife.ai/internal/transport/ws"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "http listen address")
		configDir    = flag.String("configs", "./configs", "config directory")
		scenarioPath = flag.String("scenario", "", "scenario yaml path (default: <configs>/scenario.yaml)")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		disableDB    = flag.Bool("disable_db", false, "disable the sqlite journal")

		snapPath     = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest   = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
		snapEveryOps = flag.Uint64("snapshot_every_ops", 500, "write a snapshot every N applied operations (0 disables)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	sp := strings.TrimSpace(*scenarioPath)
	if sp == "" {
		sp = filepath.Join(*configDir, "scenario.yaml")
		if _, err := os.Stat(sp); err != nil {
			// Built-in defaults when no scenario file is shipped.
			sp = ""
		}
	}
	cfg, err := scenario.Load(sp)
	if err != nil {
		logger.Fatalf("load scenario: %v", err)
	}

	data, err := campusdata.Load(*configDir)
	if err != nil {
		logger.Fatalf("load campus data: %v", err)
	}

	runDir := filepath.Join(*dataDir, "runs", cfg.RunID)
	_ = os.MkdirAll(runDir, 0o755)

	w, err := campus.New(cfg, data)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	// Resume from snapshot if one is available and matches the inputs.
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(runDir)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.RunID != "" && snap.Header.RunID != cfg.RunID {
			logger.Fatalf("snapshot run id mismatch: scenario=%s snap=%s", cfg.RunID, snap.Header.RunID)
		}
		if snap.MapDigest != data.MapDigest || snap.CoursesDigest != data.CoursesDigest || snap.ScenarioDigest != cfg.Digest {
			logger.Fatalf("snapshot input digests differ from loaded data; refusing to resume from %s", snapshotToLoad)
		}
		if err := w.Restore(snap.State); err != nil {
			logger.Fatalf("restore snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s applied_ops=%d", filepath.Base(snapshotToLoad), w.AppliedOps())
	}

	ctx, cancel := signalContext()
	defer cancel()

	// Read-model journal (does not affect sim determinism).
	var jnl *journal.SQLiteJournal
	if !*disableDB {
		jnl, err = journal.OpenSQLite(filepath.Join(runDir, "journal.db"))
		if err != nil {
			logger.Fatalf("open journal: %v", err)
		}
		defer jnl.Close()
		if err := jnl.UpsertInputs(map[string]string{
			"map":      data.MapDigest,
			"courses":  data.CoursesDigest,
			"scenario": cfg.Digest,
		}); err != nil {
			logger.Printf("journal: upsert inputs: %v", err)
		}
	}

	opLog := persistlog.NewOpLogger(runDir)
	defer opLog.Close()

	var srvJournal ws.Journal
	if jnl != nil {
		srvJournal = jnl
	}
	wsrv := ws.NewServer(w, srvJournal, opLog, logger)

	writeSnap := func(req ws.SnapshotRequest) {
		path := filepath.Join(runDir, "snapshots", fmt.Sprintf("%d.snap.zst", req.AppliedOps))
		snap := snapshot.SnapshotV1{
			Header: snapshot.Header{
				Version:    1,
				RunID:      cfg.RunID,
				AppliedOps: req.AppliedOps,
			},
			Seed:           cfg.Seed,
			ScenarioDigest: cfg.Digest,
			MapDigest:      data.MapDigest,
			CoursesDigest:  data.CoursesDigest,
			State:          req.State,
		}
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			logger.Printf("snapshot write: %v", err)
			return
		}
		logger.Printf("snapshot written: %s", filepath.Base(path))
	}

	snapCh := make(chan ws.SnapshotRequest, 2)
	wsrv.SetSnapshotSink(snapCh, *snapEveryOps)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-snapCh:
				writeSnap(req)
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/ws", wsrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("run=%s listening on %s", cfg.RunID, *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// Final snapshot on shutdown so the next start resumes where we stopped.
	writeSnap(wsrv.ExportState())
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(runDir string) string {
	dir := filepath.Join(runDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	type cand struct {
		ops  uint64
		name string
	}
	var cands []cand
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		cands = append(cands, cand{ops: n, name: name})
	}
	if len(cands) == 0 {
		return ""
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].ops < cands[j].ops })
	return filepath.Join(dir, cands[len(cands)-1].name)
}

// Package journal maintains the sqlite read model: one row per applied
// operation plus a queryable booking ledger. Writes go through a single
// writer goroutine fed by a buffered channel, so the simulator never blocks
// on the disk. The journal is an index, not the source of truth; the
// snapshot and op logs are.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"campuslife.ai/internal/persistence/log"
	"campuslife.ai/internal/sim/campus"
)

type SQLiteJournal struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqOp reqKind = iota + 1
	reqBooking
	reqFlush
)

type req struct {
	kind reqKind

	op      log.OpEntry
	booking bookingRow
	flush   chan struct{}
}

type bookingRow struct {
	Seq        uint64
	LocationID string
	ItemName   string
	SeatID     string
	Date       string
	TimeSlot   string
}

func OpenSQLite(path string) (*SQLiteJournal, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	j := &SQLiteJournal{
		db: db,
		// Operations arrive one at a time, but keep headroom for bursty
		// controller scripts replaying queued ops.
		ch: make(chan req, 16384),
	}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.loop()
	}()
	return j, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads; NORMAL is a decent
	// durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS inputs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ops (
			seq INTEGER PRIMARY KEY,
			op TEXT NOT NULL,
			args_json TEXT,
			status TEXT NOT NULL,
			error_code TEXT,
			message TEXT,
			digest TEXT,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ops_op ON ops(op, seq);`,
		`CREATE TABLE IF NOT EXISTS bookings (
			seq INTEGER PRIMARY KEY,
			location_id TEXT NOT NULL,
			item_name TEXT NOT NULL,
			seat_id TEXT,
			date TEXT NOT NULL,
			time_slot TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_location_date ON bookings(location_id, date);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (j *SQLiteJournal) Close() error {
	var err error
	j.once.Do(func() {
		j.closed.Store(true)
		close(j.ch)
		j.wg.Wait()
		err = j.db.Close()
	})
	return err
}

func (j *SQLiteJournal) WriteOp(entry log.OpEntry) error {
	if j == nil || j.closed.Load() {
		return nil
	}
	select {
	case j.ch <- req{kind: reqOp, op: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
	}
	return nil
}

func (j *SQLiteJournal) RecordBooking(seq uint64, b campus.Booking) {
	if j == nil || j.closed.Load() {
		return
	}
	r := bookingRow{
		Seq:        seq,
		LocationID: b.LocationID,
		ItemName:   b.ItemName,
		SeatID:     b.SeatID,
		Date:       b.Date,
		TimeSlot:   b.TimeSlot,
	}
	select {
	case j.ch <- req{kind: reqBooking, booking: r}:
	default:
	}
}

// UpsertInputs records the digests of the static inputs the run was started
// with, for post-hoc comparison against snapshots.
func (j *SQLiteJournal) UpsertInputs(digests map[string]string) error {
	if j == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := j.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO inputs(name,digest,updated_at) VALUES(?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for name, digest := range digests {
		if name == "" || digest == "" {
			continue
		}
		if _, err := stmt.Exec(name, digest, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// OpCount reports the number of journaled operations; used by tests and the
// replay tool.
func (j *SQLiteJournal) OpCount() (int, error) {
	// Flush pending writes first so the count reflects everything enqueued.
	j.Flush()
	var n int
	err := j.db.QueryRow(`SELECT COUNT(*) FROM ops`).Scan(&n)
	return n, err
}

// Flush blocks until the writer goroutine has drained and committed
// everything enqueued before the call.
func (j *SQLiteJournal) Flush() {
	if j == nil || j.closed.Load() {
		return
	}
	done := make(chan struct{})
	select {
	case j.ch <- req{kind: reqFlush, flush: done}:
		<-done
	default:
	}
}

func (j *SQLiteJournal) loop() {
	ctx := context.Background()

	insertOp, _ := j.db.Prepare(`INSERT OR REPLACE INTO ops(seq,op,args_json,status,error_code,message,digest,recorded_at) VALUES(?,?,?,?,?,?,?,?)`)
	insertBooking, _ := j.db.Prepare(`INSERT OR REPLACE INTO bookings(seq,location_id,item_name,seat_id,date,time_slot) VALUES(?,?,?,?,?,?)`)
	defer func() {
		if insertOp != nil {
			_ = insertOp.Close()
		}
		if insertBooking != nil {
			_ = insertBooking.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 200
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := j.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range j.ch {
		if r.kind == reqFlush {
			commit()
			close(r.flush)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqOp:
			e := r.op
			var args any
			if len(e.Args) > 0 {
				args = string(e.Args)
			}
			if insertOp != nil {
				if _, err := tx.Stmt(insertOp).Exec(
					int64(e.Seq),
					e.Op,
					args,
					e.Status,
					nullable(e.ErrorCode),
					nullable(e.Message),
					nullable(e.Digest),
					e.LoggedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqBooking:
			b := r.booking
			if insertBooking != nil {
				if _, err := tx.Stmt(insertBooking).Exec(
					int64(b.Seq),
					b.LocationID,
					b.ItemName,
					nullable(b.SeatID),
					b.Date,
					b.TimeSlot,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

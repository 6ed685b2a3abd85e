package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"tickbot.dev/internal/bot"
	"tickbot.dev/internal/commands"
	"tickbot.dev/internal/sim/catalogs"
	"tickbot.dev/internal/sim/tuning"
)

// SQLiteIndex is a queryable secondary index of bot runs, lifecycle events
// and commands. Writes are queued to one writer goroutine and dropped when
// it falls behind; the JSONL logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEvents atomic.Uint64
	dropAudits atomic.Uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqAudit
	reqSync
)

type req struct {
	kind reqKind

	event bot.Event
	audit commands.AuditEntry
	done  chan struct{}
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
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

	s := &SQLiteIndex{db: db, ch: make(chan req, queue)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
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
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			task TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			stop_reason TEXT,
			iterations INTEGER NOT NULL DEFAULT 0,
			runtime_ms INTEGER NOT NULL DEFAULT 0,
			pauses INTEGER NOT NULL DEFAULT 0,
			faults INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_task ON runs(task, started_at);`,
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			time TEXT NOT NULL,
			task TEXT NOT NULL,
			run_id TEXT,
			kind TEXT NOT NULL,
			reason TEXT,
			iterations INTEGER NOT NULL,
			runtime_ms INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, seq);`,
		`CREATE TABLE IF NOT EXISTS commands (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			time TEXT NOT NULL,
			session TEXT,
			command_id TEXT,
			text TEXT NOT NULL,
			ok INTEGER NOT NULL,
			code TEXT
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Record queues a lifecycle event. It never blocks, so it is safe on the
// simulation goroutine.
func (s *SQLiteIndex) Record(e bot.Event) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqEvent, event: e}:
	default:
		s.dropEvents.Add(1)
	}
}

var _ bot.EventSink = (*SQLiteIndex)(nil)

func (s *SQLiteIndex) WriteAudit(a commands.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: a}:
	default:
		s.dropAudits.Add(1)
	}
	return nil
}

// Sync waits until everything queued before it is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqSync, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Stats struct {
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
	DropEventTotal uint64 `json:"drop_event_total"`
	DropAuditTotal uint64 `json:"drop_audit_total"`
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropEventTotal: s.dropEvents.Load(),
		DropAuditTotal: s.dropAudits.Load(),
	}
}

// UpsertCatalogs stores the loaded catalogs and the tuning in effect.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	add := func(name, digest string, v any) {
		b, err := json.Marshal(v)
		if err != nil || len(b) == 0 {
			return
		}
		if digest == "" {
			sum := sha256.Sum256(b)
			digest = hex.EncodeToString(sum[:])
		}
		rows = append(rows, kv{name: name, digest: digest, json: b})
	}
	add("objects", cats.Objects.Digest, cats.Objects.Defs)
	add("items", cats.Items.Digest, cats.Items.Defs)
	add("layout", cats.Layout.Digest, cats.Layout)
	add("tuning", "", tune)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('catalogs_digest',?)`, cats.Digest); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertEvent, _ := s.db.Prepare(`INSERT INTO events(time,task,run_id,kind,reason,iterations,runtime_ms,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	startRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,task,started_at) VALUES(?,?,?)`)
	stopRun, _ := s.db.Prepare(`UPDATE runs SET ended_at=?, stop_reason=?, iterations=?, runtime_ms=? WHERE run_id=?`)
	pauseRun, _ := s.db.Prepare(`UPDATE runs SET pauses=pauses+1 WHERE run_id=?`)
	faultRun, _ := s.db.Prepare(`UPDATE runs SET faults=faults+1 WHERE run_id=?`)
	insertCommand, _ := s.db.Prepare(`INSERT INTO commands(time,session,command_id,text,ok,code) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertEvent, startRun, stopRun, pauseRun, faultRun, insertCommand} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
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
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return true
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	handle := func(r req) {
		if r.kind == reqSync {
			commit()
			close(r.done)
			return
		}
		begin()
		if tx == nil {
			return
		}
		switch r.kind {
		case reqEvent:
			e := r.event
			at := e.Time.UTC().Format(time.RFC3339Nano)
			raw, _ := json.Marshal(e)
			if !exec(insertEvent, at, e.Task, e.RunID, string(e.Kind), e.Reason, int64(e.Iterations), e.RuntimeMs, string(raw)) {
				return
			}
			if e.RunID == "" {
				break
			}
			switch e.Kind {
			case bot.EventStart:
				exec(startRun, e.RunID, e.Task, at)
			case bot.EventStop:
				exec(stopRun, at, e.Reason, int64(e.Iterations), e.RuntimeMs, e.RunID)
			case bot.EventPause:
				exec(pauseRun, e.RunID)
			case bot.EventFault:
				exec(faultRun, e.RunID)
			}

		case reqAudit:
			a := r.audit
			exec(insertCommand, a.Time.UTC().Format(time.RFC3339Nano), a.Session, a.ID, a.Text, a.OK, a.Code)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	// Idle transactions are committed on the ticker so readers are not
	// starved of the single connection.
	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()
	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			handle(r)
		case <-ticker.C:
			commit()
		}
	}
}

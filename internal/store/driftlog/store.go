package driftlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DriftLogStore 持久化每轮漂移检测的报告，方便回溯告警历史。
type DriftLogStore struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	ownsDB bool
}

// ReportRecord 一次漂移检测的落盘记录。ChecksJSON 为检测明细的 JSON 数组。
type ReportRecord struct {
	ID         int64  `json:"id"`
	TraceID    string `json:"trace_id"`
	Symbol     string `json:"symbol"`
	Level      string `json:"level"`
	Triggered  int    `json:"triggered"`
	ChecksJSON string `json:"checks_json"`
	Summary    string `json:"summary"`
	CreatedAt  int64  `json:"created_at"`
}

// ReportQuery 筛选漂移报告。
type ReportQuery struct {
	Symbol string
	Level  string
	Limit  int
	Offset int
}

// NewDriftLogStore 初始化 SQLite 存储。
func NewDriftLogStore(path string) (*DriftLogStore, error) {
	if path == "" {
		return nil, fmt.Errorf("drift log path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureDriftLogSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DriftLogStore{db: db, path: path, ownsDB: true}, nil
}

// UseExternalDB 允许复用外部初始化的 SQLite 连接，避免多连接锁冲突。
func (s *DriftLogStore) UseExternalDB(db *sql.DB) error {
	if s == nil {
		return fmt.Errorf("drift log store 未初始化")
	}
	if db == nil {
		return fmt.Errorf("external db 不能为空")
	}
	if err := ensureDriftLogSchema(db); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownsDB && s.db != nil && s.db != db {
		_ = s.db.Close()
	}
	s.db = db
	s.ownsDB = false
	return nil
}

// Close 关闭底层 DB。
func (s *DriftLogStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	if !s.ownsDB {
		s.db = nil
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureDriftLogSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS drift_reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trace_id TEXT,
			symbol TEXT NOT NULL,
			level TEXT NOT NULL,
			triggered INTEGER NOT NULL DEFAULT 0,
			checks_json TEXT,
			summary TEXT,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_drift_reports_symbol_ts ON drift_reports(symbol, created_at DESC, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_drift_reports_level ON drift_reports(level);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert 写入一条漂移报告。Checks 参数可为任意可 JSON 序列化的明细。
func (s *DriftLogStore) Insert(ctx context.Context, rec ReportRecord, checks interface{}) (int64, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return 0, fmt.Errorf("drift log store 未初始化")
	}
	if rec.ChecksJSON == "" && checks != nil {
		if b, err := json.Marshal(checks); err == nil {
			rec.ChecksJSON = string(b)
		}
	}
	createdAt := rec.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO drift_reports (trace_id, symbol, level, triggered, checks_json, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(rec.TraceID),
		strings.ToUpper(strings.TrimSpace(rec.Symbol)),
		strings.ToUpper(strings.TrimSpace(rec.Level)),
		rec.Triggered,
		rec.ChecksJSON,
		rec.Summary,
		createdAt,
	)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// ListReports 返回最新的漂移报告，支持按 symbol/level 过滤。
func (s *DriftLogStore) ListReports(ctx context.Context, q ReportQuery) ([]ReportRecord, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("drift log store 未初始化")
	}
	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	filterSQL, args := buildReportFilter(q)
	query := `SELECT id, trace_id, symbol, level, triggered, checks_json, summary, created_at
		FROM drift_reports` + filterSQL + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []ReportRecord
	for rows.Next() {
		var (
			rec     ReportRecord
			trace   sql.NullString
			checks  sql.NullString
			summary sql.NullString
		)
		if err := rows.Scan(&rec.ID, &trace, &rec.Symbol, &rec.Level, &rec.Triggered, &checks, &summary, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.TraceID = trace.String
		rec.ChecksJSON = checks.String
		rec.Summary = summary.String
		list = append(list, rec)
	}
	return list, rows.Err()
}

// CountReports 统计满足筛选条件的报告数量。
func (s *DriftLogStore) CountReports(ctx context.Context, q ReportQuery) (int, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return 0, fmt.Errorf("drift log store 未初始化")
	}
	filterSQL, args := buildReportFilter(q)
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM drift_reports`+filterSQL, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func buildReportFilter(q ReportQuery) (string, []interface{}) {
	var args []interface{}
	var sb strings.Builder
	sb.WriteString(" WHERE 1=1")
	if sym := strings.ToUpper(strings.TrimSpace(q.Symbol)); sym != "" {
		sb.WriteString(" AND symbol = ?")
		args = append(args, sym)
	}
	if lvl := strings.ToUpper(strings.TrimSpace(q.Level)); lvl != "" {
		sb.WriteString(" AND level = ?")
		args = append(args, lvl)
	}
	return sb.String(), args
}

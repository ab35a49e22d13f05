package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gexwatch/internal/snapshot"
	"gexwatch/internal/store"
	storemodel "gexwatch/internal/store/model"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

type snapshotModel = storemodel.SnapshotModel
type mergeLogModel = storemodel.MergeLogModel
type confirmedHistoryModel = storemodel.ConfirmedHistoryModel

// GormStore 基于 Gorm + SQLite 的快照存储实现。
type GormStore struct {
	db *gorm.DB
}

var _ store.SnapshotStore = (*GormStore)(nil)

// NewGormStore 初始化存储并建表。
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 快照库路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&snapshotModel{}, &mergeLogModel{}, &confirmedHistoryModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL：允许少量并发读取，同时压低锁竞争。
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

// Close 关闭底层连接。
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) SaveWorking(ctx context.Context, symbol string, state store.WorkingState) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store 未初始化")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("symbol 必填")
	}
	if state.Record == nil {
		return fmt.Errorf("working record 不能为空")
	}
	raw, err := json.Marshal(state.Record)
	if err != nil {
		return err
	}
	now := time.Now()
	firstSeen := state.FirstSeen
	if firstSeen.IsZero() {
		firstSeen = now
	}
	model := snapshotModel{
		Symbol:           symbol,
		WorkingJSON:      datatypes.JSON(raw),
		CompletenessRate: state.CompletenessRate,
		IsComplete:       boolToInt(state.IsComplete),
		MergeCount:       state.MergeCount,
		TraceID:          strings.TrimSpace(state.TraceID),
		FirstSeenUnix:    firstSeen.UnixMilli(),
		UpdatedAtUnix:    now.UnixMilli(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"working_json":      gorm.Expr("excluded.working_json"),
				"completeness_rate": gorm.Expr("excluded.completeness_rate"),
				"is_complete":       gorm.Expr("excluded.is_complete"),
				"merge_count":       gorm.Expr("excluded.merge_count"),
				"trace_id":          gorm.Expr("excluded.trace_id"),
				"updated_at":        gorm.Expr("excluded.updated_at"),
			}),
		}).
		Create(&model).Error
}

func (s *GormStore) LoadWorking(ctx context.Context, symbol string) (store.WorkingState, bool, error) {
	if s == nil || s.db == nil {
		return store.WorkingState{}, false, fmt.Errorf("gorm store 未初始化")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	var model snapshotModel
	if err := s.db.WithContext(ctx).Where("symbol = ?", symbol).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return store.WorkingState{}, false, nil
		}
		return store.WorkingState{}, false, err
	}
	if len(model.WorkingJSON) == 0 {
		return store.WorkingState{}, false, nil
	}
	rec, err := decodeRecord(model.WorkingJSON)
	if err != nil {
		return store.WorkingState{}, false, err
	}
	return store.WorkingState{
		Record:           rec,
		CompletenessRate: model.CompletenessRate,
		IsComplete:       model.IsComplete != 0,
		MergeCount:       model.MergeCount,
		TraceID:          model.TraceID,
		FirstSeen:        time.UnixMilli(model.FirstSeenUnix),
		UpdatedAt:        time.UnixMilli(model.UpdatedAtUnix),
	}, true, nil
}

func (s *GormStore) PromoteConfirmed(ctx context.Context, symbol string, v store.ConfirmedVersion) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store 未初始化")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("symbol 必填")
	}
	if v.Record == nil {
		return fmt.Errorf("confirmed record 不能为空")
	}
	raw, err := json.Marshal(v.Record)
	if err != nil {
		return err
	}
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&snapshotModel{}).
			Where("symbol = ?", symbol).
			Updates(map[string]interface{}{
				"confirmed_json": datatypes.JSON(raw),
				"updated_at":     createdAt.UnixMilli(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		hist := confirmedHistoryModel{
			Symbol:           symbol,
			RecordJSON:       datatypes.JSON(raw),
			CompletenessRate: v.CompletenessRate,
			TraceID:          strings.TrimSpace(v.TraceID),
			CreatedAtUnix:    createdAt.UnixMilli(),
		}
		return tx.Create(&hist).Error
	})
}

func (s *GormStore) LoadConfirmed(ctx context.Context, symbol string) (store.ConfirmedVersion, bool, error) {
	if s == nil || s.db == nil {
		return store.ConfirmedVersion{}, false, fmt.Errorf("gorm store 未初始化")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	var model snapshotModel
	if err := s.db.WithContext(ctx).Where("symbol = ?", symbol).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return store.ConfirmedVersion{}, false, nil
		}
		return store.ConfirmedVersion{}, false, err
	}
	if len(model.ConfirmedJSON) == 0 {
		return store.ConfirmedVersion{}, false, nil
	}
	rec, err := decodeRecord(model.ConfirmedJSON)
	if err != nil {
		return store.ConfirmedVersion{}, false, err
	}
	return store.ConfirmedVersion{
		Record:           rec,
		CompletenessRate: model.CompletenessRate,
		TraceID:          model.TraceID,
		CreatedAt:        time.UnixMilli(model.UpdatedAtUnix),
	}, true, nil
}

func (s *GormStore) ListConfirmedHistory(ctx context.Context, symbol string, limit int) ([]store.ConfirmedVersion, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var models []confirmedHistoryModel
	if err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]store.ConfirmedVersion, 0, len(models))
	for _, m := range models {
		rec, err := decodeRecord(m.RecordJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, store.ConfirmedVersion{
			Record:           rec,
			CompletenessRate: m.CompletenessRate,
			TraceID:          m.TraceID,
			CreatedAt:        time.UnixMilli(m.CreatedAtUnix),
		})
	}
	return out, nil
}

func (s *GormStore) ListSymbols(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	var symbols []string
	if err := s.db.WithContext(ctx).
		Model(&snapshotModel{}).
		Order("symbol ASC").
		Pluck("symbol", &symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}

func (s *GormStore) AppendMergeLog(ctx context.Context, entry store.MergeLogEntry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store 未初始化")
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	model := mergeLogModel{
		Symbol:           strings.ToUpper(strings.TrimSpace(entry.Symbol)),
		TraceID:          strings.TrimSpace(entry.TraceID),
		Outcome:          string(entry.Outcome),
		Round:            entry.Round,
		FieldsAdded:      entry.FieldsAdded,
		FieldsUpdated:    entry.FieldsUpdated,
		FieldsPreserved:  entry.FieldsPreserved,
		InvalidRejected:  entry.InvalidRejected,
		CompletenessRate: entry.CompletenessRate,
		Reason:           strings.TrimSpace(entry.Reason),
		CreatedAtUnix:    createdAt.UnixMilli(),
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

func (s *GormStore) ListMergeLog(ctx context.Context, symbol string, limit int) ([]store.MergeLogEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := s.db.WithContext(ctx).Model(&mergeLogModel{})
	if symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}
	var models []mergeLogModel
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]store.MergeLogEntry, 0, len(models))
	for _, m := range models {
		out = append(out, store.MergeLogEntry{
			Symbol:           m.Symbol,
			TraceID:          m.TraceID,
			Outcome:          store.MergeOutcome(m.Outcome),
			Round:            m.Round,
			FieldsAdded:      m.FieldsAdded,
			FieldsUpdated:    m.FieldsUpdated,
			FieldsPreserved:  m.FieldsPreserved,
			InvalidRejected:  m.InvalidRejected,
			CompletenessRate: m.CompletenessRate,
			Reason:           m.Reason,
			CreatedAt:        time.UnixMilli(m.CreatedAtUnix),
		})
	}
	return out, nil
}

func decodeRecord(raw datatypes.JSON) (*snapshot.TargetRecord, error) {
	var rec snapshot.TargetRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("解析快照 JSON 失败: %w", err)
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OperationKind distinguishes the two signing modes in the idempotency ledger
// so the same key can safely be used once per mode.
type OperationKind string

const (
	OperationKindHot OperationKind = "hot"
	OperationKindHD  OperationKind = "hd"
)

// IdempotencyRecord maps a logical signing operation to the transaction it
// produced. Once committed a record is immutable and is never deleted.
type IdempotencyRecord struct {
	ID            uint           `gorm:"primaryKey"`
	OperationKind OperationKind  `gorm:"column:operation_kind;type:varchar(16);not null;uniqueIndex:idx_operation_idempotency_key"`
	Key           string         `gorm:"column:idempotency_key;type:varchar(255);not null;uniqueIndex:idx_operation_idempotency_key"`
	TxID          string         `gorm:"column:tx_id;type:varchar(255);not null"`
	RequestData   datatypes.JSON `gorm:"column:request_data;type:text"`
	CreatedAt     time.Time      `gorm:"column:created_at"`
}

// TableName specifies the table name for the IdempotencyRecord model
func (IdempotencyRecord) TableName() string {
	return "idempotency_records"
}

// IdempotencyLedger provides at-most-once commit semantics for signing
// operations keyed by (operation kind, idempotency key).
//
// Commit must be safe under concurrent callers racing on the same pair:
// exactly one insert wins, and every caller gets back the authoritative
// record, so a lost race is indistinguishable from success.
type IdempotencyLedger interface {
	// Get returns the committed record for the pair, or nil if absent.
	Get(ctx context.Context, kind OperationKind, key string) (*IdempotencyRecord, error)
	// Commit stores the record for the pair. If a record already exists the
	// pre-existing one is returned and the new txID is discarded.
	Commit(ctx context.Context, kind OperationKind, key, txID string, requestData []byte) (*IdempotencyRecord, error)
}

// DBIdempotencyStore persists records through gorm, relying on the composite
// unique index for atomic first-writer-wins commits. Required for
// multi-instance deployments and crash recovery.
type DBIdempotencyStore struct {
	db *gorm.DB
}

// NewDBIdempotencyStore creates a database-backed idempotency ledger.
func NewDBIdempotencyStore(db *gorm.DB) *DBIdempotencyStore {
	return &DBIdempotencyStore{db: db}
}

func (s *DBIdempotencyStore) Get(ctx context.Context, kind OperationKind, key string) (*IdempotencyRecord, error) {
	var record IdempotencyRecord
	err := s.db.WithContext(ctx).
		Where("operation_kind = ? AND idempotency_key = ?", kind, key).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup idempotency record: %w", err)
	}
	return &record, nil
}

func (s *DBIdempotencyStore) Commit(ctx context.Context, kind OperationKind, key, txID string, requestData []byte) (*IdempotencyRecord, error) {
	record := &IdempotencyRecord{
		OperationKind: kind,
		Key:           key,
		TxID:          txID,
		RequestData:   requestData,
		CreatedAt:     time.Now(),
	}

	// ON CONFLICT DO NOTHING makes the insert race-safe on both postgres and
	// sqlite; zero rows affected means another caller committed first.
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record)
	if result.Error != nil {
		return nil, fmt.Errorf("commit idempotency record: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return record, nil
	}

	existing, err := s.Get(ctx, kind, key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("idempotency record for %s/%s vanished after conflicting commit", kind, key)
	}
	return existing, nil
}

// List returns committed records in insertion order, batched by id for the
// reconciliation pass.
func (s *DBIdempotencyStore) List(ctx context.Context, afterID uint, limit int) ([]IdempotencyRecord, error) {
	var records []IdempotencyRecord
	err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list idempotency records: %w", err)
	}
	return records, nil
}

// Count returns the number of committed records, used by the periodic
// metrics sweep.
func (s *DBIdempotencyStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&IdempotencyRecord{}).Count(&count).Error
	return count, err
}

// MemoryIdempotencyStore is the non-persisted fallback used when no database
// is configured. State is process-local: it is only suitable for
// single-instance deployments and does not survive restarts.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*IdempotencyRecord
}

// NewMemoryIdempotencyStore creates an in-process idempotency ledger.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		records: make(map[string]*IdempotencyRecord),
	}
}

func memoryRecordKey(kind OperationKind, key string) string {
	return string(kind) + ":" + key
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, kind OperationKind, key string) (*IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[memoryRecordKey(kind, key)]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *MemoryIdempotencyStore) Commit(_ context.Context, kind OperationKind, key, txID string, requestData []byte) (*IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapKey := memoryRecordKey(kind, key)
	if existing, ok := s.records[mapKey]; ok {
		copied := *existing
		return &copied, nil
	}

	record := &IdempotencyRecord{
		OperationKind: kind,
		Key:           key,
		TxID:          txID,
		RequestData:   requestData,
		CreatedAt:     time.Now(),
	}
	s.records[mapKey] = record

	copied := *record
	return &copied, nil
}

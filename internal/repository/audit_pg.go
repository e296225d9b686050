package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hlgate/hlgate/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresAuditRepo struct {
	db *gorm.DB
}

func NewPostgresAuditRepo(db *gorm.DB) *PostgresAuditRepo {
	return &PostgresAuditRepo{db: db}
}

type auditRecord struct {
	ID            string `gorm:"primaryKey"`
	AccountID     string `gorm:"index:idx_audit_logs_account,priority:1"`
	Method        string
	Path          string
	IP            string
	UserAgent     string
	RequestBody   string
	RequestHeader string
	StatusCode    int
	ResponseBody  string
	LatencyMs     int64
	Context       []byte    `gorm:"type:jsonb"`
	CreatedAt     time.Time `gorm:"index:idx_audit_logs_account,priority:2,sort:desc"`
}

func (auditRecord) TableName() string { return "audit_logs" }

func (r *PostgresAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	contextJSON, _ := json.Marshal(entry.Context)
	rec := &auditRecord{
		ID:            entry.ID,
		AccountID:     entry.AccountID,
		Method:        entry.Method,
		Path:          entry.Path,
		IP:            entry.IP,
		UserAgent:     entry.UserAgent,
		RequestBody:   entry.RequestBody,
		RequestHeader: entry.RequestHeader,
		StatusCode:    entry.StatusCode,
		ResponseBody:  entry.ResponseBody,
		LatencyMs:     entry.LatencyMs,
		Context:       contextJSON,
		CreatedAt:     entry.CreatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec).Error
}

func (r *PostgresAuditRepo) List(ctx context.Context, accountID string, limit int, from, to *time.Time) ([]*model.AuditLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q := r.db.WithContext(ctx).Model(&auditRecord{})
	if accountID != "" {
		q = q.Where("account_id = ?", accountID)
	}
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at <= ?", *to)
	}

	var recs []auditRecord
	if err := q.Order("created_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.AuditLog, 0, len(recs))
	for _, rec := range recs {
		entry := &model.AuditLog{
			ID:            rec.ID,
			AccountID:     rec.AccountID,
			Method:        rec.Method,
			Path:          rec.Path,
			IP:            rec.IP,
			UserAgent:     rec.UserAgent,
			RequestBody:   rec.RequestBody,
			RequestHeader: rec.RequestHeader,
			StatusCode:    rec.StatusCode,
			ResponseBody:  rec.ResponseBody,
			LatencyMs:     rec.LatencyMs,
			CreatedAt:     rec.CreatedAt,
			Context:       map[string]interface{}{},
		}
		if len(rec.Context) > 0 {
			_ = json.Unmarshal(rec.Context, &entry.Context)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *PostgresAuditRepo) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	return r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&auditRecord{}).Error
}

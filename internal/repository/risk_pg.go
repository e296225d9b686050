package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresRiskRepo struct {
	db *gorm.DB
}

func NewPostgresRiskRepo(db *gorm.DB) *PostgresRiskRepo {
	return &PostgresRiskRepo{db: db}
}

type usageRecord struct {
	AccountID string  `gorm:"primaryKey"`
	Date      string  `gorm:"primaryKey"`
	Orders    int     `gorm:"not null;default:0"`
	Volume    float64 `gorm:"not null;default:0"`
}

func (usageRecord) TableName() string { return "risk_daily_usage" }

func (r *PostgresRiskRepo) GetDailyUsage(ctx context.Context, accountID string) (int, float64, error) {
	var rec usageRecord
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND date = ?", accountID, today()).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	return rec.Orders, rec.Volume, nil
}

// AddDailyUsage upserts today's row atomically.
func (r *PostgresRiskRepo) AddDailyUsage(ctx context.Context, accountID string, orders int, notional float64) error {
	rec := usageRecord{AccountID: accountID, Date: today(), Orders: orders, Volume: notional}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"orders": gorm.Expr("risk_daily_usage.orders + ?", orders),
			"volume": gorm.Expr("risk_daily_usage.volume + ?", notional),
		}),
	}).Create(&rec).Error
}

func (r *PostgresRiskRepo) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.DateOnly)
	return r.db.WithContext(ctx).Where("date < ?", cutoff).Delete(&usageRecord{}).Error
}

func today() string {
	return time.Now().UTC().Format(time.DateOnly)
}

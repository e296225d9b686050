package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hlgate/hlgate/internal/model"
	"gorm.io/gorm"
)

type PostgresAccountRepo struct {
	db *gorm.DB
}

func NewPostgresAccountRepo(db *gorm.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// accountRecord keeps risk and rate settings as JSON columns.
type accountRecord struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	APIKey    string `gorm:"uniqueIndex"`
	Address   string `gorm:"index"`
	Secret    string
	KeyMode   string
	RiskJSON  []byte `gorm:"column:risk_config;type:jsonb"`
	RateJSON  []byte `gorm:"column:rate_limit_config;type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (accountRecord) TableName() string { return "accounts" }

func toAccountRecord(a *model.Account) (*accountRecord, error) {
	risk, err := json.Marshal(a.Risk)
	if err != nil {
		return nil, err
	}
	rate, err := json.Marshal(a.Rate)
	if err != nil {
		return nil, err
	}
	return &accountRecord{
		ID:        a.ID,
		Name:      a.Name,
		APIKey:    a.APIKey,
		Address:   a.Address,
		Secret:    a.Secret,
		KeyMode:   a.KeyMode,
		RiskJSON:  risk,
		RateJSON:  rate,
		CreatedAt: a.CreatedAt,
	}, nil
}

func (r *accountRecord) toDomain() (*model.Account, error) {
	a := &model.Account{
		ID:        r.ID,
		Name:      r.Name,
		APIKey:    r.APIKey,
		Address:   r.Address,
		Secret:    r.Secret,
		KeyMode:   r.KeyMode,
		CreatedAt: r.CreatedAt,
	}
	if len(r.RiskJSON) > 0 {
		if err := json.Unmarshal(r.RiskJSON, &a.Risk); err != nil {
			return nil, err
		}
	}
	if len(r.RateJSON) > 0 {
		if err := json.Unmarshal(r.RateJSON, &a.Rate); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (r *PostgresAccountRepo) first(ctx context.Context, query string, arg any) (*model.Account, error) {
	var rec accountRecord
	err := r.db.WithContext(ctx).Where(query, arg).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toDomain()
}

func (r *PostgresAccountRepo) GetByAPIKey(ctx context.Context, apiKey string) (*model.Account, error) {
	return r.first(ctx, "api_key = ?", apiKey)
}

func (r *PostgresAccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PostgresAccountRepo) List(ctx context.Context, limit, offset int) ([]*model.Account, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var recs []accountRecord
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Account, 0, len(recs))
	for i := range recs {
		a, err := recs[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *PostgresAccountRepo) Create(ctx context.Context, a *model.Account) error {
	rec, err := toAccountRecord(a)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *PostgresAccountRepo) Update(ctx context.Context, a *model.Account) error {
	rec, err := toAccountRecord(a)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&accountRecord{}).Where("id = ?", a.ID).Updates(map[string]any{
		"name":              rec.Name,
		"api_key":           rec.APIKey,
		"address":           rec.Address,
		"secret":            rec.Secret,
		"key_mode":          rec.KeyMode,
		"risk_config":       rec.RiskJSON,
		"rate_limit_config": rec.RateJSON,
		"updated_at":        time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *PostgresAccountRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&accountRecord{}, "id = ?", id).Error
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/hlgate/hlgate/internal/pkg/logger"
	"github.com/hlgate/hlgate/internal/repository"
	"github.com/hlgate/hlgate/internal/signer"
	"github.com/hlgate/hlgate/internal/vault"
)

// AccountService is the admin side of account management. Raw private keys
// only pass through Create and RotateSecret and are encrypted before
// anything is stored.
type AccountService struct {
	repo    AccountRepoCRUD
	manager *AccountManager
	vault   *vault.Vault
}

type AccountRepoCRUD interface {
	AccountRepo
	List(ctx context.Context, limit, offset int) ([]*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
	Create(ctx context.Context, a *model.Account) error
	Update(ctx context.Context, a *model.Account) error
	Delete(ctx context.Context, id string) error
}

type AccountCreateRequest struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	APIKey     string                `json:"api_key" binding:"required"`
	PrivateKey string                `json:"private_key" binding:"required"`
	KeyMode    string                `json:"key_mode"`
	Password   string                `json:"password"`
	Risk       model.RiskConfig      `json:"risk"`
	Rate       model.RateLimitConfig `json:"rate_limit"`
}

type AccountUpdateRequest struct {
	Name   *string                `json:"name"`
	APIKey *string                `json:"api_key"`
	Risk   *model.RiskConfig      `json:"risk"`
	Rate   *model.RateLimitConfig `json:"rate_limit"`
}

type SecretRotateRequest struct {
	PrivateKey string `json:"private_key" binding:"required"`
	KeyMode    string `json:"key_mode"`
	Password   string `json:"password"`
}

func NewAccountService(manager *AccountManager, repo AccountRepoCRUD, v *vault.Vault) *AccountService {
	return &AccountService{repo: repo, manager: manager, vault: v}
}

func (s *AccountService) List(ctx context.Context, limit, offset int) ([]*model.Account, error) {
	if s.repo != nil {
		return s.repo.List(ctx, limit, offset)
	}
	return s.manager.List(), nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*model.Account, error) {
	if s.repo != nil {
		return s.repo.GetByID(ctx, id)
	}
	a, ok := s.manager.GetByID(id)
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return a, nil
}

func (s *AccountService) Create(ctx context.Context, req AccountCreateRequest) (*model.Account, error) {
	a := &model.Account{
		ID:        strings.TrimSpace(req.ID),
		Name:      req.Name,
		APIKey:    strings.TrimSpace(req.APIKey),
		Risk:      req.Risk,
		Rate:      req.Rate,
		CreatedAt: time.Now().UTC(),
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.APIKey == "" {
		return nil, apperrors.NewInvalidRequest("api_key is required")
	}
	if err := s.seal(a, req.PrivateKey, req.KeyMode, req.Password); err != nil {
		return nil, err
	}
	if s.repo != nil {
		if err := s.repo.Create(ctx, a); err != nil {
			return nil, err
		}
	}
	s.manager.Register(a)
	logger.Info("Account created", "account_id", a.ID, "address", a.Address, "key_mode", a.KeyMode)
	return a, nil
}

func (s *AccountService) Update(ctx context.Context, id string, req AccountUpdateRequest) (*model.Account, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.APIKey != nil && *req.APIKey != "" {
		a.APIKey = *req.APIKey
	}
	if req.Risk != nil {
		a.Risk = *req.Risk
	}
	if req.Rate != nil {
		a.Rate = *req.Rate
	}
	if s.repo != nil {
		if err := s.repo.Update(ctx, a); err != nil {
			return nil, err
		}
	}
	s.manager.Replace(a)
	return a, nil
}

// RotateSecret replaces the stored key. The new key may belong to a
// different address; open positions of the old address are not touched.
func (s *AccountService) RotateSecret(ctx context.Context, id string, req SecretRotateRequest) (*model.Account, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.seal(a, req.PrivateKey, req.KeyMode, req.Password); err != nil {
		return nil, err
	}
	if s.repo != nil {
		if err := s.repo.Update(ctx, a); err != nil {
			return nil, err
		}
	}
	s.manager.Replace(a)
	logger.Info("Account secret rotated", "account_id", a.ID, "address", a.Address)
	return a, nil
}

func (s *AccountService) Delete(ctx context.Context, id string) error {
	if s.repo != nil {
		if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrAccountNotFound) {
			return err
		}
	}
	s.manager.RemoveByID(id)
	return nil
}

func (s *AccountService) seal(a *model.Account, privateKey, mode, password string) error {
	raw := []byte(strings.TrimSpace(privateKey))
	defer vault.Wipe(raw)

	key, err := signer.ParsePrivateKey(raw)
	if err != nil {
		return err
	}
	addr := signer.Address(key)
	signer.Zeroize(key)

	if mode == "" {
		mode = model.KeyModePassword
	}
	var enc *vault.EncryptedSecret
	switch mode {
	case model.KeyModePassword:
		if password == "" {
			return apperrors.NewInvalidRequest("password is required for password-mode accounts")
		}
		enc, err = vault.Encrypt(raw, password)
	case model.KeyModeServer:
		if s.vault == nil {
			return apperrors.NewConfiguration("server key is not configured")
		}
		enc, err = s.vault.EncryptWithServerKey(raw)
	default:
		return apperrors.NewInvalidRequest(fmt.Sprintf("unknown key mode %q", mode))
	}
	if err != nil {
		return err
	}

	a.Address = addr.Hex()
	a.KeyMode = mode
	a.Secret = enc.String()
	return nil
}

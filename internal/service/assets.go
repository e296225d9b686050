package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
)

// AssetCache holds the exchange universe for one trading client. It is
// fetched on first use and never invalidated. A failed fetch is not
// remembered, so the next lookup tries again.
type AssetCache struct {
	fetch func(ctx context.Context) (*model.Meta, error)

	mu       sync.Mutex
	loaded   bool
	ordered  []model.AssetMetadata
	bySymbol map[string]model.AssetMetadata
}

func NewAssetCache(fetch func(ctx context.Context) (*model.Meta, error)) *AssetCache {
	return &AssetCache{fetch: fetch}
}

func (a *AssetCache) ensure(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loaded {
		return nil
	}

	meta, err := a.fetch(ctx)
	if err != nil {
		return err
	}

	ordered := make([]model.AssetMetadata, 0, len(meta.Universe))
	bySymbol := make(map[string]model.AssetMetadata, len(meta.Universe))
	for i, info := range meta.Universe {
		md := model.AssetMetadata{
			Symbol:      info.Name,
			ID:          i,
			SzDecimals:  info.SzDecimals,
			MaxLeverage: info.MaxLeverage,
		}
		ordered = append(ordered, md)
		bySymbol[strings.ToUpper(info.Name)] = md
	}
	a.ordered = ordered
	a.bySymbol = bySymbol
	a.loaded = true
	return nil
}

// Lookup resolves a symbol, case-insensitively.
func (a *AssetCache) Lookup(ctx context.Context, symbol string) (model.AssetMetadata, error) {
	if err := a.ensure(ctx); err != nil {
		return model.AssetMetadata{}, err
	}
	a.mu.Lock()
	md, ok := a.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	a.mu.Unlock()
	if !ok {
		return model.AssetMetadata{}, apperrors.NewInvalidRequest(fmt.Sprintf("unknown asset %q", symbol))
	}
	return md, nil
}

// All returns the universe in exchange order.
func (a *AssetCache) All(ctx context.Context) ([]model.AssetMetadata, error) {
	if err := a.ensure(ctx); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.AssetMetadata(nil), a.ordered...), nil
}

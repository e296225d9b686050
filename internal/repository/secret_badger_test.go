package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := OpenBadgerStore(BadgerOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerSecrets(t *testing.T) {
	s := openMemStore(t)

	_, ok, err := s.GetSecret("main")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutSecret("main", `{"ciphertext":"x"}`))
	require.NoError(t, s.PutSecret("backup", `{"ciphertext":"y"}`))
	val, ok, err := s.GetSecret("main")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"ciphertext":"x"}`, val)

	names, err := s.ListSecrets()
	require.NoError(t, err)
	assert.Equal(t, []string{"backup", "main"}, names)

	require.NoError(t, s.DeleteSecret("main"))
	_, ok, err = s.GetSecret("main")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, apperrors.Is(s.PutSecret("  ", "v"), apperrors.ErrInvalidRequest))
}

func TestBadgerAccounts(t *testing.T) {
	s := openMemStore(t)
	ctx := context.Background()

	a := &model.Account{ID: "acct-1", APIKey: "sk-1", Address: "0xabc", Secret: "{}", CreatedAt: time.Now()}
	require.NoError(t, s.Create(ctx, a))
	assert.Error(t, s.Create(ctx, a), "duplicate id")

	got, err := s.GetByAPIKey(ctx, "sk-1")
	require.NoError(t, err)
	assert.Equal(t, "acct-1", got.ID)

	a.APIKey = "sk-2"
	require.NoError(t, s.Update(ctx, a))
	_, err = s.GetByAPIKey(ctx, "sk-1")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	got, err = s.GetByAPIKey(ctx, "sk-2")
	require.NoError(t, err)
	assert.Equal(t, "acct-1", got.ID)

	require.NoError(t, s.Create(ctx, &model.Account{ID: "acct-2", APIKey: "sk-3", CreatedAt: time.Now().Add(time.Minute)}))
	list, err := s.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "acct-2", list[0].ID)

	require.NoError(t, s.Delete(ctx, "acct-1"))
	_, err = s.GetByID(ctx, "acct-1")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, err = s.GetByAPIKey(ctx, "sk-2")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "acct-1"), ErrAccountNotFound)
}

package upath_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/biglist/upath"
)

func TestLocalPath_WriteReadRoundtrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := upath.New(filepath.Join(dir, "info.json"))

	require.NoError(t, p.WriteBytes(ctx, []byte(`{"a":1}`), true))

	exists, err := p.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := p.ReadBytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestLocalPath_WriteBytes_OverwriteFalseRejectsExisting(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := upath.New(filepath.Join(dir, "info.json"))

	require.NoError(t, p.WriteBytes(ctx, []byte("first"), false))
	err := p.WriteBytes(ctx, []byte("second"), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, upath.ErrAlreadyExists)

	data, err := p.ReadBytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestLocalPath_ReadBytes_NotFound(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := upath.New(filepath.Join(dir, "missing.json"))

	_, err := p.ReadBytes(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, upath.ErrNotFound)
}

func TestLocalPath_Lock_TimeoutZeroFailsWhenContended(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := upath.New(filepath.Join(dir, "manifest.json"))

	guard, err := p.Lock(ctx, -1)
	require.NoError(t, err)
	defer guard.Unlock()

	_, err = p.Lock(ctx, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, upath.ErrLockTimeout)
}

func TestLocalPath_Lock_ReleasedAllowsNextAcquire(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := upath.New(filepath.Join(dir, "manifest.json"))

	guard, err := p.Lock(ctx, -1)
	require.NoError(t, err)
	require.NoError(t, guard.Unlock())

	guard2, err := p.Lock(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, guard2.Unlock())
}

func TestLocalPath_Riterdir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	root := upath.New(dir)

	require.NoError(t, root.Join("a.txt").WriteBytes(ctx, []byte("a"), true))
	require.NoError(t, root.Join("sub", "b.txt").WriteBytes(ctx, []byte("b"), true))

	infos, err := root.Riterdir(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 2)
	for _, info := range infos {
		assert.False(t, info.IsDir)
	}
}

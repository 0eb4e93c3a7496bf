package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	require.NoError(t, lfs.MkdirAll(dir, 0755))

	fpath := filepath.Join(dir, "test.txt")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())
	assert.Equal(t, fpath, f.Name())

	entries, err := lfs.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "test.txt", entries[0].Name())

	newPath := filepath.Join(dir, "renamed.txt")
	require.NoError(t, lfs.Rename(fpath, newPath))
	require.NoError(t, lfs.Remove(newPath))
	_, err = os.Stat(newPath)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS(t *testing.T) {
	tmp := t.TempDir()
	customErr := errors.New("disk full")

	ffs := NewFaultyFS(nil)
	ffs.AddRule("limited", Fault{FailAfterBytes: 4, Err: customErr})
	ffs.AddRule("nosync", Fault{FailAfterBytes: -1, FailOnSync: true})
	ffs.AddRule("noclose", Fault{FailAfterBytes: -1, FailOnClose: true})
	ffs.AddRule("norename", Fault{FailAfterBytes: -1, FailOnRename: true})

	open := func(name string) File {
		f, err := ffs.OpenFile(filepath.Join(tmp, name), os.O_CREATE|os.O_RDWR, 0644)
		require.NoError(t, err)
		return f
	}

	t.Run("write limit", func(t *testing.T) {
		f := open("limited.txt")
		defer f.Close()

		_, err := f.Write([]byte("1234"))
		require.NoError(t, err)
		_, err = f.Write([]byte("5"))
		assert.ErrorIs(t, err, customErr)
	})

	t.Run("sync", func(t *testing.T) {
		f := open("nosync.txt")
		defer f.Close()
		assert.ErrorIs(t, f.Sync(), ErrInjected)
	})

	t.Run("close", func(t *testing.T) {
		assert.ErrorIs(t, open("noclose.txt").Close(), ErrInjected)
	})

	t.Run("rename", func(t *testing.T) {
		src := open("plain.txt")
		require.NoError(t, src.Close())
		err := ffs.Rename(filepath.Join(tmp, "plain.txt"), filepath.Join(tmp, "norename.txt"))
		assert.ErrorIs(t, err, ErrInjected)
	})

	t.Run("unmatched files pass through", func(t *testing.T) {
		f := open("ok.txt")
		_, err := f.Write([]byte("plenty of bytes"))
		require.NoError(t, err)
		require.NoError(t, f.Sync())
		require.NoError(t, f.Close())
	})

	t.Run("clear rules", func(t *testing.T) {
		ffs.ClearRules()
		f := open("nosync2.txt")
		require.NoError(t, f.Sync())
		require.NoError(t, f.Close())
	})
}

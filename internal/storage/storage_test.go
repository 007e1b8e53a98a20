package storage

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return NewStore(fs, "/WebRecording", "Recording", nil), fs
}

func touch(t *testing.T, store *Store, name string) {
	t.Helper()
	f, err := store.Create(store.PathFor(name))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestNextRecordingNameSequence(t *testing.T) {
	store, _ := newTestStore(t)

	var names []string
	for i := 0; i < 3; i++ {
		name := store.NextRecordingName()
		names = append(names, name)
		touch(t, store, name)
	}
	assert.Equal(t, []string{"Recording01", "Recording02", "Recording03"}, names)
}

func TestNextRecordingNameFillsGaps(t *testing.T) {
	store, _ := newTestStore(t)
	touch(t, store, "Recording01")
	touch(t, store, "Recording03")
	assert.Equal(t, "Recording02", store.NextRecordingName())
}

func TestNextRecordingNamePastNinetyNine(t *testing.T) {
	store, _ := newTestStore(t)
	for i := 0; i < 99; i++ {
		touch(t, store, store.NextRecordingName())
	}
	assert.Equal(t, "Recording100", store.NextRecordingName())
}

func TestEnsureDirCreatesOnce(t *testing.T) {
	store, fs := newTestStore(t)

	exists, err := afero.DirExists(fs, "/WebRecording")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.EnsureDir())
	require.NoError(t, store.EnsureDir())

	exists, err = afero.DirExists(fs, "/WebRecording")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLastRecording(t *testing.T) {
	store, fs := newTestStore(t)

	_, err := store.LastRecording()
	assert.Error(t, err, "missing directory")

	require.NoError(t, store.EnsureDir())
	_, err = store.LastRecording()
	assert.ErrorIs(t, err, ErrNoRecordings)

	touch(t, store, "Recording01")
	touch(t, store, "Recording02")
	touch(t, store, "Recording03")
	require.NoError(t, fs.Mkdir("/WebRecording/folder.wav", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/WebRecording/notes.txt", []byte("x"), 0o644))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, fs.Chtimes("/WebRecording/Recording01.wav", base, base.Add(3*time.Hour)))
	require.NoError(t, fs.Chtimes("/WebRecording/Recording02.wav", base, base.Add(1*time.Hour)))
	require.NoError(t, fs.Chtimes("/WebRecording/Recording03.wav", base, base.Add(2*time.Hour)))
	require.NoError(t, fs.Chtimes("/WebRecording/notes.txt", base, base.Add(9*time.Hour)))
	require.NoError(t, fs.Chtimes("/WebRecording/folder.wav", base, base.Add(10*time.Hour)))

	last, err := store.LastRecording()
	require.NoError(t, err)
	assert.Equal(t, "/WebRecording/Recording01.wav", last)
}

func TestListAndOpen(t *testing.T) {
	store, _ := newTestStore(t)
	touch(t, store, "Recording01")

	entries, err := store.List(store.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Recording01.wav", entries[0].Name)
	assert.False(t, entries[0].IsDir)

	assert.True(t, store.Exists(store.PathFor("Recording01")))
	assert.False(t, store.Exists(store.PathFor("Recording02")))

	f, err := store.Open(store.PathFor("Recording01"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = store.Open(store.PathFor("Recording09"))
	assert.Error(t, err)
}

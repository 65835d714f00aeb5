package batch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	commit := Commit{Before: "b", After: "a"}

	cp, err := OpenCheckpoint(path)
	require.NoError(t, err)

	done, err := cp.Done(commit)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, cp.Mark(commit, OutcomeEmitted, "run-1"))
	require.NoError(t, cp.Close())

	cp, err = OpenCheckpoint(path)
	require.NoError(t, err)
	defer cp.Close()

	done, err = cp.Done(commit)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = cp.Done(Commit{Before: "b", After: "other"})
	require.NoError(t, err)
	assert.False(t, done)

	n, err := cp.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCheckpoint_Nil(t *testing.T) {
	var cp *Checkpoint

	done, err := cp.Done(Commit{Before: "b", After: "a"})
	assert.NoError(t, err)
	assert.False(t, done)
	assert.NoError(t, cp.Mark(Commit{}, OutcomeEmitted, "run"))
	assert.NoError(t, cp.Close())
}

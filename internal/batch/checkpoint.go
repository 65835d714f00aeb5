package batch

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const checkpointBucket = "commits"

type checkpointEntry struct {
	Outcome string    `json:"outcome"`
	RunID   string    `json:"run_id"`
	At      time.Time `json:"at"`
}

// Checkpoint remembers which commits a previous run already finished. A nil
// *Checkpoint is valid and remembers nothing.
type Checkpoint struct {
	db *bolt.DB
}

func OpenCheckpoint(path string) (*Checkpoint, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(checkpointBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise checkpoint: %w", err)
	}

	return &Checkpoint{db: db}, nil
}

// Done reports whether commit was finished by an earlier run.
func (c *Checkpoint) Done(commit Commit) (bool, error) {
	if c == nil {
		return false, nil
	}

	var done bool
	err := c.db.View(func(tx *bolt.Tx) error {
		done = tx.Bucket([]byte(checkpointBucket)).Get([]byte(commit.Key())) != nil
		return nil
	})
	return done, err
}

// Mark records commit as finished with the given outcome.
func (c *Checkpoint) Mark(commit Commit, outcome Outcome, runID string) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(checkpointEntry{Outcome: outcome.String(), RunID: runID, At: time.Now().UTC()})
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(checkpointBucket)).Put([]byte(commit.Key()), data)
	})
}

// Len returns the number of finished commits.
func (c *Checkpoint) Len() (int, error) {
	if c == nil {
		return 0, nil
	}

	var n int
	err := c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(checkpointBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

func (c *Checkpoint) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

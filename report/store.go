package report

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/yairfalse/purku/types"
)

var runsBucket = []byte("runs")

// Store archives finalized run reports, queryable by run ID.
type Store struct {
	db *bolt.DB
}

// OpenStore opens (or creates) the report archive at path.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open report store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create runs bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save archives one finalized report under its run ID.
func (s *Store) Save(r *RunReport) error {
	if r.Metadata.RunID == "" {
		return fmt.Errorf("report has no run ID")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put([]byte(r.Metadata.RunID), data)
	})
}

// Get returns one archived report by run ID.
func (s *Store) Get(runID string) (*RunReport, error) {
	var r RunReport
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(runsBucket).Get([]byte(runID))
		if data == nil {
			return fmt.Errorf("run %s not found", runID)
		}
		return json.Unmarshal(data, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns metadata for every archived run, in key order.
func (s *Store) List() ([]types.RunMetadata, error) {
	var runs []types.RunMetadata
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(_, data []byte) error {
			var r RunReport
			if err := json.Unmarshal(data, &r); err != nil {
				return err
			}
			runs = append(runs, r.Metadata)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/invoice-review/internal/invoice"
)

const (
	extractionBucketName = "extractions"
	draftBucketName      = "drafts"
)

// ErrNoExtraction is returned when a session has no pending extraction
var ErrNoExtraction = errors.New("no pending extraction")

// Store holds per-session review state
type Store interface {
	// PutExtraction stores an extraction payload for the session, replacing
	// any earlier payload and discarding any open draft
	PutExtraction(sessionID string, payload []byte) error

	// TakeExtraction returns the session's extraction payload and clears it
	TakeExtraction(sessionID string) ([]byte, error)

	// SaveDraft stores the session's draft
	SaveDraft(sessionID string, draft *invoice.Draft) error

	// GetDraft retrieves the session's draft
	GetDraft(sessionID string) (*invoice.Draft, error)

	// UpdateDraft reads the session's draft, applies update and stores the
	// result atomically. When update fails nothing is stored.
	UpdateDraft(sessionID string, update func(*invoice.Draft) error) (*invoice.Draft, error)

	// DeleteDraft removes the session's draft
	DeleteDraft(sessionID string) error

	// Close closes the store
	Close() error
}

// BoltStore implements the Store interface using BoltDB
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a new BoltStore instance
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(extractionBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(draftBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// PutExtraction stores a payload and drops the session's draft in the same
// transaction
func (b *BoltStore) PutExtraction(sessionID string, payload []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(draftBucketName)).Delete([]byte(sessionID)); err != nil {
			return err
		}
		return tx.Bucket([]byte(extractionBucketName)).Put([]byte(sessionID), payload)
	})
}

// TakeExtraction reads and deletes the session's payload
func (b *BoltStore) TakeExtraction(sessionID string) ([]byte, error) {
	var payload []byte
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(extractionBucketName))
		data := bucket.Get([]byte(sessionID))
		if data == nil {
			return ErrNoExtraction
		}
		// data is only valid inside the transaction
		payload = append([]byte(nil), data...)
		return bucket.Delete([]byte(sessionID))
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// SaveDraft saves a draft to the database
func (b *BoltStore) SaveDraft(sessionID string, draft *invoice.Draft) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(draft)
		if err != nil {
			return fmt.Errorf("marshaling draft: %w", err)
		}
		return tx.Bucket([]byte(draftBucketName)).Put([]byte(sessionID), data)
	})
}

// GetDraft retrieves a draft by session ID
func (b *BoltStore) GetDraft(sessionID string) (*invoice.Draft, error) {
	var draft *invoice.Draft
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(draftBucketName)).Get([]byte(sessionID))
		if data == nil {
			return invoice.ErrNoDraft
		}
		return json.Unmarshal(data, &draft)
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// UpdateDraft edits a draft inside one write transaction
func (b *BoltStore) UpdateDraft(sessionID string, update func(*invoice.Draft) error) (*invoice.Draft, error) {
	var draft invoice.Draft
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(draftBucketName))
		data := bucket.Get([]byte(sessionID))
		if data == nil {
			return invoice.ErrNoDraft
		}
		if err := json.Unmarshal(data, &draft); err != nil {
			return fmt.Errorf("unmarshaling draft: %w", err)
		}
		if err := update(&draft); err != nil {
			return err
		}
		updated, err := json.Marshal(&draft)
		if err != nil {
			return fmt.Errorf("marshaling draft: %w", err)
		}
		return bucket.Put([]byte(sessionID), updated)
	})
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// DeleteDraft removes a draft from the database
func (b *BoltStore) DeleteDraft(sessionID string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(draftBucketName)).Delete([]byte(sessionID))
	})
}

// Close closes the database connection
func (b *BoltStore) Close() error {
	return b.db.Close()
}

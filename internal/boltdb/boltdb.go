// Package boltdb persists a journal of processed batches, so an operator can
// inspect what a past run did without trawling logs.
package boltdb

import (
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"
)

var Buckets = struct {
	Metadata []byte
	Batches  []byte
}{
	Metadata: []byte("__metadata__"),
	Batches:  []byte("batches"),
}

var MetadataKeys = struct {
	Version []byte
}{
	Version: []byte("version"),
}

const currentVersion = 1

// An ItemRecord is the journalled outcome of one URL in a batch.
type ItemRecord struct {
	URL          string `json:"url"`
	ContentID    string `json:"content_id,omitempty"`
	Duplicate    bool   `json:"duplicate,omitempty"`
	File         string `json:"file,omitempty"`
	Error        string `json:"error,omitempty"`
	UploadStatus string `json:"upload_status"`
	UploadError  string `json:"upload_error,omitempty"`
}

// A BatchRecord is the journalled outcome of one pipeline batch.
type BatchRecord struct {
	ID       string       `json:"id"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	Items    []ItemRecord `json:"items"`
}

type Database interface {
	Close() error

	ListBatches() ([]BatchRecord, error)
	// GetBatch returns (nil, nil) when the batch does not exist.
	GetBatch(id string) (*BatchRecord, error)
	WriteBatch(record *BatchRecord) error
	DeleteBatch(id string) error
}

type database struct {
	*bbolt.DB
}

func New(path string) (_ Database, err error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) (err error) {
		// Ensure buckets exist
		var metadata *bbolt.Bucket
		if metadata, err = tx.CreateBucketIfNotExists(Buckets.Metadata); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(Buckets.Batches); err != nil {
			return err
		}

		// Get the current version of the database
		var version int
		if versionBytes := metadata.Get(MetadataKeys.Version); versionBytes == nil {
			version = 0
		} else if err = json.Unmarshal(versionBytes, &version); err != nil {
			return err
		}

		// TODO: perform any migration to get to latest version

		// Set the current version of the database
		if versionBytes, err := json.Marshal(currentVersion); err != nil {
			return err
		} else if err = metadata.Put(MetadataKeys.Version, versionBytes); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &database{db}, nil
}

func (d database) ListBatches() (batches []BatchRecord, err error) {
	err = d.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(Buckets.Batches)
		return bucket.ForEach(func(k, v []byte) error {
			var record BatchRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			batches = append(batches, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (d database) GetBatch(id string) (*BatchRecord, error) {
	var record *BatchRecord
	err := d.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(Buckets.Batches)
		data := bucket.Get([]byte(id))
		if data == nil {
			return nil
		}
		record = &BatchRecord{}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (d database) WriteBatch(record *BatchRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return d.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(Buckets.Batches)
		return bucket.Put([]byte(record.ID), data)
	})
}

func (d database) DeleteBatch(id string) error {
	return d.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(Buckets.Batches)
		return bucket.Delete([]byte(id))
	})
}

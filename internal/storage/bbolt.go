package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// VaultBucket is the only bucket in a bolt vault file
var VaultBucket = []byte("vault")

const openTimeout = time.Second

// BoltBackend stores vault records in BBolt files
type BoltBackend struct{}

// NewBoltBackend creates a BBolt-backed store
func NewBoltBackend() *BoltBackend {
	return &BoltBackend{}
}

// Kind implements Backend
func (b *BoltBackend) Kind() string { return BackendBolt }

func openBolt(path string, readOnly bool) (*bolt.DB, error) {
	db, err := bolt.Open(path, FilePermSecure, &bolt.Options{
		Timeout:  openTimeout,
		ReadOnly: readOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Save implements Backend
func (b *BoltBackend) Save(path string, rec Record) error {
	if !rec.Complete() {
		return storageErr("save vault", errors.New("record must carry both vault data and salt"))
	}
	if err := os.MkdirAll(filepath.Dir(path), DirPermSecure); err != nil {
		return storageErr("save vault", fmt.Errorf("failed to create directory: %w", err))
	}

	db, err := openBolt(path, false)
	if err != nil {
		return storageErr("save vault", err)
	}
	defer db.Close()

	// One transaction: both keys or neither
	err = db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(VaultBucket)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", VaultBucket, err)
		}
		if err := bucket.Put([]byte(KeyVaultData), []byte(rec.Data)); err != nil {
			return err
		}
		return bucket.Put([]byte(KeySalt), []byte(rec.Salt))
	})
	if err != nil {
		return storageErr("save vault", err)
	}
	return nil
}

// Load implements Backend
func (b *BoltBackend) Load(path string) (Record, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Record{}, nil
		}
		return Record{}, storageErr("load vault", err)
	}

	db, err := openBolt(path, true)
	if err != nil {
		return Record{}, storageErr("load vault", err)
	}
	defer db.Close()

	var rec Record
	err = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(VaultBucket)
		if bucket == nil {
			return nil
		}
		// Copies: slices are only valid during the transaction
		rec.Data = string(bucket.Get([]byte(KeyVaultData)))
		rec.Salt = string(bucket.Get([]byte(KeySalt)))
		return nil
	})
	if err != nil {
		return Record{}, storageErr("load vault", err)
	}
	return rec, nil
}

// Describe implements Backend
func (b *BoltBackend) Describe(path string) (Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{Exists: false}, nil
		}
		return Info{}, storageErr("describe vault", err)
	}

	db, err := openBolt(path, true)
	if err != nil {
		return Info{}, storageErr("describe vault", err)
	}
	defer db.Close()

	info := Info{Exists: true, Size: stat.Size()}
	err = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(VaultBucket)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			info.Keys = append(info.Keys, string(k))
			return nil
		})
	})
	if err != nil {
		return Info{}, storageErr("describe vault", err)
	}
	fillFlags(&info)
	return info, nil
}

// Compact creates a compacted copy of the database, removing unused space.
// Repeated saves leave freed pages behind; this reclaims them.
func (b *BoltBackend) Compact(path string) error {
	if _, err := os.Stat(path); err != nil {
		return storageErr("compact vault", err)
	}

	src, err := openBolt(path, true)
	if err != nil {
		return storageErr("compact vault", err)
	}

	tmpPath := path + ".compact"
	dst, err := openBolt(tmpPath, false)
	if err != nil {
		src.Close()
		return storageErr("compact vault", fmt.Errorf("failed to create compact database: %w", err))
	}

	// Copy all buckets
	err = src.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})
	src.Close()

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return storageErr("compact vault", fmt.Errorf("failed to copy data: %w", err))
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return storageErr("compact vault", fmt.Errorf("failed to close compact database: %w", err))
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return storageErr("compact vault", fmt.Errorf("failed to replace database: %w", err))
	}
	return nil
}

func fillFlags(info *Info) {
	sort.Strings(info.Keys)
	for _, k := range info.Keys {
		switch k {
		case KeyVaultData:
			info.HasVaultData = true
		case KeySalt:
			info.HasSalt = true
		}
	}
}

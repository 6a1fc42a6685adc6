/*
Copyright 2023, Cossack Labs Limited

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package storage

import (
	"github.com/cossacklabs/flagvault/flags"
	"github.com/cossacklabs/flagvault/protocol"
	bolt "go.etcd.io/bbolt"
)

var flagBucket = []byte("flags")

// BoltStorage keeps the flag set in a boltDB bucket keyed by challenge ID,
// values are the canonical flag texts. Same load/save contract as the
// flat-file store for deployments that prefer a single database file.
type BoltStorage struct {
	db *bolt.DB
}

// NewBoltStorage returns flag storage using boltDB.
func NewBoltStorage(db *bolt.DB) *BoltStorage {
	return &BoltStorage{db: db}
}

// Load reads and validates every flag in the bucket.
func (store *BoltStorage) Load() ([]flags.ValidatableFlag, error) {
	var flagSet []flags.ValidatableFlag
	err := store.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(flagBucket)
		if bucket == nil {
			return nil
		}
		position := 0
		return bucket.ForEach(func(key, value []byte) error {
			flag, err := protocol.ParseFlag(string(value))
			if err != nil {
				return loadError(position, err)
			}
			flagSet = append(flagSet, flag)
			position++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return flagSet, nil
}

// Save replaces the bucket content with the given flag set.
func (store *BoltStorage) Save(flagSet []flags.ValidatableFlag) error {
	return store.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(flagBucket) != nil {
			if err := tx.DeleteBucket(flagBucket); err != nil {
				return err
			}
		}
		bucket, err := tx.CreateBucket(flagBucket)
		if err != nil {
			return err
		}
		for _, flag := range flagSet {
			encoded, err := uuidEncode(flag)
			if err != nil {
				return err
			}
			key := []byte{byte(flag.ChallengeID())}
			if err := bucket.Put(key, []byte(encoded)); err != nil {
				return err
			}
		}
		return nil
	})
}

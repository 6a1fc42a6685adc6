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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func openTestDB(t *testing.T) *bolt.DB {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "flags.db"), 0600, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func TestBoltStorageEmpty(t *testing.T) {
	store := NewBoltStorage(openTestDB(t))
	flagSet, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, flagSet)
}

func TestBoltStorageRoundTrip(t *testing.T) {
	store := NewBoltStorage(openTestDB(t))

	flagSet := generateFlagSet(t)
	require.NoError(t, store.Save(flagSet))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, len(flagSet))
	for i := range flagSet {
		assert.True(t, loaded[i].Equal(flagSet[i]), "flag %d should survive the round trip", i)
	}

	require.NoError(t, store.Save(flagSet[1:]))
	loaded, err = store.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestBoltStorageFailsWholeLoad(t *testing.T) {
	db := openTestDB(t)
	store := NewBoltStorage(db)
	require.NoError(t, store.Save(generateFlagSet(t)))

	// plant garbage next to valid records
	err := db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(flagBucket).Put([]byte{0xFE}, []byte("not a flag at all"))
	})
	require.NoError(t, err)

	_, err = store.Load()
	require.Error(t, err, "a single bad record should fail the whole load")
}

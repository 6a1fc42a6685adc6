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

// Package storage persists flag sets in their canonical UUID-like text form.
// Every load re-validates every stored record; a single invalid record fails
// the whole load, there is no partial recovery.
package storage

import (
	"fmt"

	"github.com/cossacklabs/flagvault/flags"
	"github.com/cossacklabs/flagvault/uuidlike"
)

// Storage is the persistence contract of a flag set.
type Storage interface {
	// Load returns every stored flag, validated. A missing backing store is
	// an empty set, not an error.
	Load() ([]flags.ValidatableFlag, error)
	// Save overwrites the backing store with the given flag set.
	Save(flagSet []flags.ValidatableFlag) error
}

// loadError annotates a failed record with its position in the store so the
// operator knows which entry to inspect, preserving the wrapped error kind.
func loadError(position int, err error) error {
	return fmt.Errorf("flag %d: %w", position, err)
}

// uuidEncode returns the canonical text of an already validated flag.
func uuidEncode(flag flags.ValidatableFlag) (string, error) {
	return uuidlike.EncodeRecord(flag)
}

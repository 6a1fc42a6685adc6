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
	"os"
	"strings"

	"github.com/cossacklabs/flagvault/flags"
	"github.com/cossacklabs/flagvault/protocol"
	"github.com/cossacklabs/flagvault/utils"
)

// FilesystemStorage keeps one canonical flag text per line in a flat file.
type FilesystemStorage struct {
	path string
}

// NewFilesystemStorage returns flag storage backed by the file at path. The
// file doesn't have to exist yet.
func NewFilesystemStorage(path string) (*FilesystemStorage, error) {
	absPath, err := utils.AbsPath(path)
	if err != nil {
		return nil, err
	}
	return &FilesystemStorage{path: absPath}, nil
}

// Load reads the file and parses and validates every line.
func (store *FilesystemStorage) Load() ([]flags.ValidatableFlag, error) {
	exists, err := utils.FileExists(store.path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	data, err := os.ReadFile(store.path)
	if err != nil {
		return nil, err
	}
	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return nil, nil
	}
	lines := strings.Split(content, "\n")
	flagSet := make([]flags.ValidatableFlag, len(lines))
	for i, line := range lines {
		flag, err := protocol.ParseFlag(line)
		if err != nil {
			return nil, loadError(i, err)
		}
		flagSet[i] = flag
	}
	return flagSet, nil
}

// Save overwrites the file with newline-joined re-encodings of the flag set.
func (store *FilesystemStorage) Save(flagSet []flags.ValidatableFlag) error {
	lines := make([]string, len(flagSet))
	for i, flag := range flagSet {
		encoded, err := uuidEncode(flag)
		if err != nil {
			return err
		}
		lines[i] = encoded
	}
	return os.WriteFile(store.path, []byte(strings.Join(lines, "\n")), 0600)
}

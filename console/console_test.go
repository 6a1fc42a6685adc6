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
package console

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cossacklabs/flagvault/protocol"
	"github.com/cossacklabs/flagvault/storage"
)

func testStore(t *testing.T) storage.Storage {
	t.Helper()
	store, err := storage.NewFilesystemStorage(filepath.Join(t.TempDir(), "flags"))
	require.NoError(t, err)
	return store
}

func wrappedFlags(t *testing.T) []string {
	t.Helper()
	wrapped, err := protocol.GenerateWrappedFlags([][]byte{[]byte("ABCD"), []byte("EFGH")}, []byte("console password"))
	require.NoError(t, err)
	return wrapped
}

func runScript(t *testing.T, store storage.Storage, script ...string) string {
	t.Helper()
	var out bytes.Buffer
	console := NewConsole(store, strings.NewReader(strings.Join(script, "\n")+"\n"), &out)
	require.NoError(t, console.Run())
	return out.String()
}

func TestEmptyProgressAndDecrypt(t *testing.T) {
	store := testStore(t)
	out := runScript(t, store, "3", "2", "0")
	assert.Contains(t, out, "You've done none of the challenges")
}

func TestAddDecryptFullSet(t *testing.T) {
	store := testStore(t)
	wrapped := wrappedFlags(t)

	out := runScript(t, store, "1", wrapped[0], "1", wrapped[1], "3", "2", "0")
	assert.Contains(t, out, "You've passed the challenge 0.")
	assert.Contains(t, out, "You've passed the challenge 1.")
	assert.Contains(t, out, "The challenge you've solved: 0, 1 (2 in total).")
	assert.Contains(t, out, "Here is something you want: ABCDEFGH")
}

func TestDecryptIncompleteSet(t *testing.T) {
	store := testStore(t)
	wrapped := wrappedFlags(t)

	out := runScript(t, store, "1", wrapped[0], "2", "0")
	assert.Contains(t, out, "Probably because you've not done all the challenges.")
	assert.NotContains(t, out, "Here is something you want")
}

func TestAddInvalidFlag(t *testing.T) {
	store := testStore(t)

	out := runScript(t, store, "1", "not-a-flag-at-all", "0")
	assert.Contains(t, out, "The flag is not valid.")

	// structurally fine but tampered: flip a hash character inside the text
	wrapped := wrappedFlags(t)[0]
	tampered := []byte(wrapped)
	pos := len(tampered) - 2
	if tampered[pos] == '0' {
		tampered[pos] = '1'
	} else {
		tampered[pos] = '0'
	}
	out = runScript(t, store, "1", string(tampered), "0")
	assert.Contains(t, out, "Validation for the flag is failed.")
}

func TestAddDuplicateFlag(t *testing.T) {
	store := testStore(t)
	wrapped := wrappedFlags(t)

	out := runScript(t, store, "1", wrapped[0], "1", wrapped[0], "0")
	assert.Contains(t, out, "You've previously solved this challenge.")
}

func TestReplaceFlagWithConfirmation(t *testing.T) {
	store := testStore(t)
	first := wrappedFlags(t)
	second, err := protocol.GenerateWrappedFlags([][]byte{[]byte("WXYZ"), []byte("QRST")}, []byte("other password"))
	require.NoError(t, err)

	// same challenge ID, different payload, declined then confirmed
	out := runScript(t, store, "1", first[0], "1", second[0], "n", "0")
	assert.Contains(t, out, "same ID but different data")
	assert.Contains(t, out, "The process was cancelled.")

	out = runScript(t, store, "1", second[0], "y", "0")
	assert.Contains(t, out, "The old flag is removed and being replaced by the new one.")

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	expected, err := protocol.Unwrap(second[0])
	require.NoError(t, err)
	assert.True(t, loaded[0].Equal(expected))
}

func TestInvalidChoice(t *testing.T) {
	out := runScript(t, testStore(t), "9", "banana", "0")
	assert.Contains(t, out, "You've typed an invalid choice~")
}

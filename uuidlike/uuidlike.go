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

// Package uuidlike maps five fixed-width byte blocks onto a hyphenated hex
// string with the textual shape of a UUID. Only the shape is shared: the
// blocks carry domain-specific byte semantics and are not a valid RFC 4122
// UUID.
package uuidlike

import (
	"encoding/hex"
	"errors"
	"strings"
)

// BlockCount is the number of blocks in the UUID-like layout.
const BlockCount = 5

// BlockLengths are the byte widths of the blocks, hex widths 8-4-4-4-12.
var BlockLengths = [BlockCount]int{4, 2, 2, 2, 6}

// Errors returned on texts or blocks that don't fit the layout.
var (
	ErrBlockLength = errors.New("some blocks do not meet the length requirements")
	ErrBlockCount  = errors.New("too many or too few blocks for a UUID-like string")
	ErrNotHex      = errors.New("some characters are not valid for hex")
)

// Blocks is an ordered tuple of byte blocks with widths BlockLengths.
type Blocks [BlockCount][]byte

// Translatable is implemented by records that can be carried in the UUID-like
// text form. The reverse direction goes through a validating per-type
// constructor taking Blocks, so corrupted input surfaces on decode.
type Translatable interface {
	UUIDBlocks() Blocks
}

// Encode hex-encodes blocks and joins them with hyphens,
// ex. a1b2c3d4-abcd-dcba-adbc-a1b2c3d4e5f6. Output hex is lowercase.
func Encode(blocks Blocks) (string, error) {
	groups := make([]string, BlockCount)
	for i, block := range blocks {
		if len(block) != BlockLengths[i] {
			return "", ErrBlockLength
		}
		groups[i] = hex.EncodeToString(block)
	}
	return strings.Join(groups, "-"), nil
}

// EncodeRecord encodes a translatable record into its UUID-like text form.
func EncodeRecord(record Translatable) (string, error) {
	return Encode(record.UUIDBlocks())
}

// Decode parses a UUID-like string back into blocks. Hex digits are accepted
// in either case, every other deviation from the layout is rejected.
func Decode(text string) (Blocks, error) {
	groups := strings.Split(text, "-")
	if len(groups) != BlockCount {
		return Blocks{}, ErrBlockCount
	}
	var blocks Blocks
	for i, group := range groups {
		if len(group) != BlockLengths[i]*2 {
			return Blocks{}, ErrBlockLength
		}
		block, err := hex.DecodeString(group)
		if err != nil {
			return Blocks{}, ErrNotHex
		}
		blocks[i] = block
	}
	return blocks, nil
}

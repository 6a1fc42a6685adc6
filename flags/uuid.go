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

package flags

import (
	"github.com/cossacklabs/flagvault/uuidlike"
)

// UUIDBlocks maps the validatable flag onto the 4-2-2-2-6 UUID-like layout:
//
//	block 1: encrypted data       (4 bytes)
//	block 2: partial password     (2 bytes)
//	block 3: checksum             (2 bytes)
//	block 4: signature, challenge (1 byte each)
//	block 5: expected hash        (6 bytes)
//
// It implements uuidlike.Translatable.
func (flag ValidatableFlag) UUIDBlocks() uuidlike.Blocks {
	return uuidlike.Blocks{
		flag.encryptedData,
		flag.partialPassword,
		flag.checksum,
		{flag.signature, byte(flag.challengeID)},
		flag.expectedHash,
	}
}

// ValidatableFlagFromBlocks rebuilds a validatable flag from UUID-like
// blocks through the validating constructors, so corrupted blocks surface as
// structural or validation errors instead of silently wrong records.
func ValidatableFlagFromBlocks(blocks uuidlike.Blocks) (ValidatableFlag, error) {
	for i, block := range blocks {
		if len(block) != uuidlike.BlockLengths[i] {
			return ValidatableFlag{}, ErrMalformedFlag
		}
	}
	signature, challengeID := blocks[3][0], int(blocks[3][1])
	flag, err := NewFlag(blocks[0], blocks[1], blocks[2], challengeID)
	if err != nil {
		return ValidatableFlag{}, err
	}
	return NewValidatableFlag(flag, signature, blocks[4])
}

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

// SignatureByte marks an encoded record as a validatable flag, distinguishing
// it from arbitrary data that happens to share the UUID-like shape.
const SignatureByte byte = 0xFA

// Field widths of the binary flag layout. Together with the signature and
// challenge ID bytes they make up the 15 payload bytes carried over the
// 4-2-2-2-6 UUID-like blocks.
const (
	// EncryptedDataLength is the width of the ciphertext fragment.
	EncryptedDataLength = 4
	// PartialPasswordLength is the width of the keystream fragment.
	PartialPasswordLength = 2
	// ChecksumLength is the width of the decrypted data checksum.
	ChecksumLength = 2
	// HashLength is the width of the SHA-1 prefix commitment.
	HashLength = 6
)

// MaxChallengeID is the largest challenge ID that fits the 1-byte block.
const MaxChallengeID = 0xFF

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

// Package protocol generates flags from a secret and reconstructs the secret
// from a complete flag set.
//
// A single keystream derived from the password keys ONE cipher over the whole
// concatenation of secret blocks. Each flag gets a positional slice of the
// ciphertext and of the keystream, so no fragment is recoverable until every
// issued flag is collected. This coupling is the point of the design: do not
// rework it into independently decryptable per-block keys.
package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cossacklabs/flagvault/crypter"
	"github.com/cossacklabs/flagvault/flags"
	"github.com/cossacklabs/flagvault/uuidlike"
)

// BlockSize is the number of secret bytes carried by one flag.
const BlockSize = flags.EncryptedDataLength

// Wrapper literals of the textual flag envelope.
const (
	WrapPrefix = "flag{"
	WrapSuffix = "}"
)

// Errors returned on incorrect generation input or a broken envelope.
var (
	// ErrNulByte is a usage error: zero bytes are reserved as the padding
	// sentinel and may not appear in secret data.
	ErrNulByte = errors.New("NUL byte is not allowed to appear in secret data")
	// ErrBlockTooBig rejects secret blocks that exceed BlockSize.
	ErrBlockTooBig = fmt.Errorf("%w: secret block is too big to fit", flags.ErrMalformedFlag)
	// ErrNotWrapped rejects texts without the exact flag{...} envelope.
	ErrNotWrapped = fmt.Errorf(`%w: flag should be wrapped with "flag{}"`, flags.ErrMalformedFlag)
	// ErrChecksumMismatch fails the whole reconstruction when any recovered
	// block disagrees with its flag's stored checksum.
	ErrChecksumMismatch = fmt.Errorf("%w: decrypted data checksum mismatch", flags.ErrFlagValidation)
)

// Checksum returns the additive checksum of data: the byte sum modulo
// 2^(8*length), big-endian. Integrity-only, not collision-resistant and not a
// security mechanism.
func Checksum(data []byte, length int) []byte {
	var sum uint64
	for _, value := range data {
		sum += uint64(value)
	}
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, sum)
	result := make([]byte, length)
	copy(result, buffer[8-length:])
	return result
}

// padBlocks right-pads every block with zero bytes up to size and rejects
// blocks that already exceed it.
func padBlocks(blocks [][]byte, size int) ([][]byte, error) {
	padded := make([][]byte, len(blocks))
	for i, block := range blocks {
		if len(block) > size {
			return nil, ErrBlockTooBig
		}
		fixed := make([]byte, size)
		copy(fixed, block)
		padded[i] = fixed
	}
	return padded, nil
}

// GenerateFlags splits the secret blocks into flags. Every block is encrypted
// by one shared cipher keyed with the keystream derived from the password;
// flag i carries the ciphertext slice at offset BlockSize*i, the keystream
// slice at offset 2*i, the checksum of block i and challenge ID i.
func GenerateFlags(blocks [][]byte, password []byte) ([]flags.Flag, error) {
	for _, block := range blocks {
		if bytes.IndexByte(block, 0) != -1 {
			return nil, ErrNulByte
		}
	}

	padded, err := padBlocks(blocks, BlockSize)
	if err != nil {
		return nil, err
	}
	merged := bytes.Join(padded, nil)

	keystream := crypter.DeriveKey(password, len(padded))
	crypt, err := crypter.NewCrypter(keystream, len(merged))
	if err != nil {
		return nil, err
	}
	encrypted, err := crypt.Encrypt(merged, true)
	if err != nil {
		return nil, err
	}

	generated := make([]flags.Flag, 0, len(padded))
	for i, block := range padded {
		flag, err := flags.NewFlag(
			encrypted[i*BlockSize:(i+1)*BlockSize],
			keystream[i*flags.PartialPasswordLength:(i+1)*flags.PartialPasswordLength],
			Checksum(block, flags.ChecksumLength),
			i,
		)
		if err != nil {
			return nil, err
		}
		generated = append(generated, flag)
	}
	return generated, nil
}

// DecryptFlags reconstructs the secret blocks from flags. Input order is
// irrelevant: flags are sorted by challenge ID before the ciphertext and the
// keystream are reassembled by position. Reconstruction is only correct when
// every flag issued at generation time is present; completeness must be
// guaranteed by the caller.
func DecryptFlags(input []flags.Flag) ([][]byte, error) {
	sorted := append([]flags.Flag(nil), input...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ChallengeID() < sorted[j].ChallengeID()
	})

	encrypted := make([]byte, 0, len(sorted)*BlockSize)
	keystream := make([]byte, 0, len(sorted)*flags.PartialPasswordLength)
	for _, flag := range sorted {
		encrypted = append(encrypted, flag.EncryptedData()...)
		keystream = append(keystream, flag.PartialPassword()...)
	}

	crypt, err := crypter.NewCrypter(keystream, len(encrypted))
	if err != nil {
		return nil, err
	}
	decrypted, err := crypt.Decrypt(encrypted, true)
	if err != nil {
		return nil, err
	}

	results := make([][]byte, 0, len(sorted))
	for i, flag := range sorted {
		block := decrypted[i*BlockSize : (i+1)*BlockSize]
		if !bytes.Equal(flag.Checksum(), Checksum(block, flags.ChecksumLength)) {
			// the keystream and ciphertext are shared state across all
			// flags, so one bad block invalidates the whole result
			return nil, ErrChecksumMismatch
		}
		results = append(results, bytes.TrimRight(block, "\x00"))
	}
	return results, nil
}

// EncodeFlag returns the canonical UUID-like text of a flag, attaching the
// integrity envelope first.
func EncodeFlag(flag flags.Flag) (string, error) {
	return uuidlike.EncodeRecord(flags.MakeValidatable(flag))
}

// ParseFlag parses and validates a flag from its canonical UUID-like text.
func ParseFlag(text string) (flags.ValidatableFlag, error) {
	blocks, err := uuidlike.Decode(text)
	if err != nil {
		return flags.ValidatableFlag{}, err
	}
	return flags.ValidatableFlagFromBlocks(blocks)
}

// Wrap encodes a flag and wraps it into the flag{...} envelope.
func Wrap(flag flags.Flag) (string, error) {
	encoded, err := EncodeFlag(flag)
	if err != nil {
		return "", err
	}
	return WrapPrefix + encoded + WrapSuffix, nil
}

// Unwrap requires the exact flag{...} envelope and parses the wrapped flag.
func Unwrap(text string) (flags.ValidatableFlag, error) {
	if !strings.HasPrefix(text, WrapPrefix) || !strings.HasSuffix(text, WrapSuffix) {
		return flags.ValidatableFlag{}, ErrNotWrapped
	}
	return ParseFlag(text[len(WrapPrefix) : len(text)-len(WrapSuffix)])
}

// GenerateWrappedFlags generates flags and returns them in wrapped text form.
func GenerateWrappedFlags(blocks [][]byte, password []byte) ([]string, error) {
	generated, err := GenerateFlags(blocks, password)
	if err != nil {
		return nil, err
	}
	wrapped := make([]string, len(generated))
	for i, flag := range generated {
		if wrapped[i], err = Wrap(flag); err != nil {
			return nil, err
		}
	}
	return wrapped, nil
}

// DecryptWrappedFlags parses, validates and decrypts flags in wrapped text
// form.
func DecryptWrappedFlags(texts []string) ([][]byte, error) {
	parsed := make([]flags.Flag, len(texts))
	for i, text := range texts {
		flag, err := Unwrap(text)
		if err != nil {
			return nil, err
		}
		parsed[i] = flag.Flag
	}
	return DecryptFlags(parsed)
}

// SplitSecret chunks a secret into blocks of at most BlockSize bytes, one
// flag's worth each, preserving order.
func SplitSecret(secret []byte) [][]byte {
	blocks := make([][]byte, 0, (len(secret)+BlockSize-1)/BlockSize)
	for len(secret) > BlockSize {
		blocks = append(blocks, secret[:BlockSize])
		secret = secret[BlockSize:]
	}
	if len(secret) > 0 {
		blocks = append(blocks, secret)
	}
	return blocks
}

// JoinSecret concatenates reconstructed blocks back into the secret.
func JoinSecret(blocks [][]byte) []byte {
	return bytes.Join(blocks, nil)
}

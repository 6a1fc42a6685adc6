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

// Package crypter implements the deterministic keyed substitution-permutation
// engine used to split secrets across flags. Key material is derived from a
// password with a seeded pseudorandom generator, so two crypters built from
// the same password and length behave identically across runs and hosts.
//
// NOT cryptographically secure. The engine exists to couple flags together,
// not to resist a capable adversary.
package crypter

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math/rand"
)

// DefaultKeyLength is the key length used when a caller has no reason to pick
// another one.
const DefaultKeyLength = 4

// keySpace is the number of distinct byte values keys are drawn from, [0, 0xFF).
const keySpace = 0xFF

// Errors returned on incorrect crypter usage.
var (
	ErrKeyLength  = errors.New("key length should be a positive value less than 255")
	ErrDataLength = errors.New("data length should be a multiple of the key length")
)

// Crypter encrypts and decrypts data with key material fixed at construction.
type Crypter struct {
	keys   []byte
	shifts []int
}

// newRandom returns a pseudorandom generator seeded from the password content.
// The seed is a fixed content hash, never an identity hash, so that generation
// and later reconstruction derive identical key material.
func newRandom(password []byte) *rand.Rand {
	digest := sha256.Sum256(password)
	seed := int64(binary.BigEndian.Uint64(digest[:8]))
	return rand.New(rand.NewSource(seed))
}

// NewCrypter derives keys and a shift permutation for the requested key length
// from the password. Keys are distinct byte values drawn without replacement,
// which bounds the usable key length by the byte value space.
func NewCrypter(password []byte, length int) (*Crypter, error) {
	if length <= 0 || length > keySpace {
		return nil, ErrKeyLength
	}
	random := newRandom(password)
	shifts := random.Perm(length)
	keys := make([]byte, length)
	for i, value := range random.Perm(keySpace)[:length] {
		keys[i] = byte(value)
	}
	return &Crypter{keys: keys, shifts: shifts}, nil
}

// KeyLength returns the group size the crypter operates on.
func (crypter *Crypter) KeyLength() int {
	return len(crypter.keys)
}

// applyTo XORs every key-length group of data position-wise with the keys.
// XOR is an involution so the same pass both encrypts and decrypts.
func (crypter *Crypter) applyTo(data []byte) ([]byte, error) {
	keyLength := len(crypter.keys)
	if len(data)%keyLength != 0 {
		return nil, ErrDataLength
	}
	applied := make([]byte, len(data))
	for i, value := range data {
		applied[i] = value ^ crypter.keys[i%keyLength]
	}
	return applied, nil
}

// Encrypt XORs data with the keys and permutes every group with the shift
// vector. When padding is allowed, data is right-padded with zero bytes up to
// the next multiple of the key length; otherwise misaligned data is an error.
func (crypter *Crypter) Encrypt(data []byte, padding bool) ([]byte, error) {
	keyLength := len(crypter.keys)
	pad := (keyLength - len(data)%keyLength) % keyLength
	if pad != 0 && !padding {
		return nil, ErrDataLength
	}
	padded := make([]byte, len(data)+pad)
	copy(padded, data)

	applied, err := crypter.applyTo(padded)
	if err != nil {
		return nil, err
	}

	shifted := make([]byte, len(applied))
	for group := 0; group < len(applied); group += keyLength {
		for j, shift := range crypter.shifts {
			shifted[group+j] = applied[group+shift]
		}
	}
	return shifted, nil
}

// Decrypt inverts the permutation of every group, XORs with the keys and
// strips trailing zero bytes unless keepNull is set. Stripping removes any
// genuine trailing zero bytes of the original plaintext as well, which is why
// zero bytes are reserved as the padding sentinel by callers.
func (crypter *Crypter) Decrypt(data []byte, keepNull bool) ([]byte, error) {
	keyLength := len(crypter.keys)
	if len(data)%keyLength != 0 {
		return nil, ErrDataLength
	}

	shifted := make([]byte, len(data))
	for group := 0; group < len(data); group += keyLength {
		for j, shift := range crypter.shifts {
			shifted[group+shift] = data[group+j]
		}
	}

	decrypted, err := crypter.applyTo(shifted)
	if err != nil {
		return nil, err
	}

	if !keepNull {
		end := len(decrypted)
		for end > 0 && decrypted[end-1] == 0 {
			end--
		}
		decrypted = decrypted[:end]
	}
	return decrypted, nil
}

// DeriveKey produces the keystream for a generation run: two bytes per secret
// block, drawn from [0, 0xFF) with replacement, from a generator seeded
// exactly as NewCrypter seeds its own. The keystream doubles as the effective
// password of the shared cipher and as the per-flag partial password source.
func DeriveKey(password []byte, blocks int) []byte {
	random := newRandom(password)
	key := make([]byte, blocks*2)
	for i := range key {
		key[i] = byte(random.Intn(keySpace))
	}
	return key
}

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

// Package flags defines the flag record: one self-certifying encrypted
// fragment of a shared secret, tied to one challenge index. A plain Flag
// carries the fragment, its keystream slice, a checksum of the plaintext and
// the challenge ID. A ValidatableFlag additionally carries a signature byte
// and a SHA-1 prefix commitment that are both checked at construction, which
// lets callers distinguish garbage input from structurally valid but tampered
// records.
package flags

import (
	"bytes"
	"crypto/sha1"
	"errors"
	"fmt"
)

// Taxonomy bases. Structural errors wrap ErrMalformedFlag, integrity errors
// wrap ErrFlagValidation; callers discriminate with errors.Is.
var (
	ErrMalformedFlag  = errors.New("malformed flag")
	ErrFlagValidation = errors.New("flag validation failed")
)

// Structural errors returned by the flag constructors.
var (
	ErrEncryptedDataLength   = fmt.Errorf("%w: the length of encrypted data should be equal to %d", ErrMalformedFlag, EncryptedDataLength)
	ErrPartialPasswordLength = fmt.Errorf("%w: the length of partial password should be equal to %d", ErrMalformedFlag, PartialPasswordLength)
	ErrChecksumLength        = fmt.Errorf("%w: the length of checksum should be equal to %d", ErrMalformedFlag, ChecksumLength)
	ErrChallengeIDRange      = fmt.Errorf("%w: challenge ID should fit in a 1-byte block", ErrMalformedFlag)
	ErrHashLength            = fmt.Errorf("%w: the length of expected hash should be equal to %d", ErrMalformedFlag, HashLength)
)

// Validation errors returned by the validating constructor.
var (
	ErrSignatureMismatch = fmt.Errorf("%w: signature mismatch", ErrFlagValidation)
	ErrHashMismatch      = fmt.Errorf("%w: hash mismatch", ErrFlagValidation)
)

// Flag is one encrypted fragment of the shared secret. Immutable after
// construction.
type Flag struct {
	encryptedData   []byte
	partialPassword []byte
	checksum        []byte
	challengeID     int
}

// NewFlag validates field widths and the challenge ID range and returns the
// record. Violations are structural errors, never validation errors.
func NewFlag(encryptedData, partialPassword, checksum []byte, challengeID int) (Flag, error) {
	if len(encryptedData) != EncryptedDataLength {
		return Flag{}, ErrEncryptedDataLength
	}
	if len(partialPassword) != PartialPasswordLength {
		return Flag{}, ErrPartialPasswordLength
	}
	if len(checksum) != ChecksumLength {
		return Flag{}, ErrChecksumLength
	}
	if challengeID < 0 || challengeID > MaxChallengeID {
		return Flag{}, ErrChallengeIDRange
	}
	return Flag{
		encryptedData:   append([]byte(nil), encryptedData...),
		partialPassword: append([]byte(nil), partialPassword...),
		checksum:        append([]byte(nil), checksum...),
		challengeID:     challengeID,
	}, nil
}

// EncryptedData returns the 4-byte ciphertext fragment.
func (flag Flag) EncryptedData() []byte {
	return flag.encryptedData
}

// PartialPassword returns the 2-byte keystream fragment.
func (flag Flag) PartialPassword() []byte {
	return flag.partialPassword
}

// Checksum returns the 2-byte additive checksum of the decrypted data.
func (flag Flag) Checksum() []byte {
	return flag.checksum
}

// ChallengeID returns the challenge index the flag belongs to.
func (flag Flag) ChallengeID() int {
	return flag.challengeID
}

// Equal reports whether two flags carry identical payloads.
func (flag Flag) Equal(other Flag) bool {
	return flag.challengeID == other.challengeID &&
		bytes.Equal(flag.encryptedData, other.encryptedData) &&
		bytes.Equal(flag.partialPassword, other.partialPassword) &&
		bytes.Equal(flag.checksum, other.checksum)
}

// HashFlag computes the hash commitment of a flag: the first HashLength bytes
// of SHA-1 over encrypted data, partial password and the challenge ID byte.
// The checksum field is deliberately outside the commitment, it is validated
// by decryption instead.
func HashFlag(flag Flag) []byte {
	identity := make([]byte, 0, EncryptedDataLength+PartialPasswordLength+1)
	identity = append(identity, flag.encryptedData...)
	identity = append(identity, flag.partialPassword...)
	identity = append(identity, byte(flag.challengeID))
	digest := sha1.Sum(identity)
	return digest[:HashLength]
}

// ValidatableFlag is a Flag with an integrity envelope: a fixed signature
// byte and the hash commitment, both verified at construction.
type ValidatableFlag struct {
	Flag
	signature    byte
	expectedHash []byte
}

// NewValidatableFlag checks the envelope over an already constructed Flag.
// A wrong hash width is a structural error; a signature or hash mismatch is a
// validation error.
func NewValidatableFlag(flag Flag, signature byte, expectedHash []byte) (ValidatableFlag, error) {
	if len(expectedHash) != HashLength {
		return ValidatableFlag{}, ErrHashLength
	}
	if signature != SignatureByte {
		return ValidatableFlag{}, ErrSignatureMismatch
	}
	if !bytes.Equal(HashFlag(flag), expectedHash) {
		return ValidatableFlag{}, ErrHashMismatch
	}
	return ValidatableFlag{
		Flag:         flag,
		signature:    signature,
		expectedHash: append([]byte(nil), expectedHash...),
	}, nil
}

// MakeValidatable attaches the computed hash commitment to a flag. It never
// fails: the input is already structurally valid and the commitment is
// computed, not checked.
func MakeValidatable(flag Flag) ValidatableFlag {
	return ValidatableFlag{
		Flag:         flag,
		signature:    SignatureByte,
		expectedHash: HashFlag(flag),
	}
}

// Signature returns the signature byte, always SignatureByte for a
// successfully constructed record.
func (flag ValidatableFlag) Signature() byte {
	return flag.signature
}

// ExpectedHash returns the 6-byte hash commitment.
func (flag ValidatableFlag) ExpectedHash() []byte {
	return flag.expectedHash
}

// Equal reports whether two validatable flags carry identical payloads and
// envelopes.
func (flag ValidatableFlag) Equal(other ValidatableFlag) bool {
	return flag.Flag.Equal(other.Flag) &&
		flag.signature == other.signature &&
		bytes.Equal(flag.expectedHash, other.expectedHash)
}

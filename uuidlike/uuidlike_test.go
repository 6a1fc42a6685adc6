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
package uuidlike

import (
	"bytes"
	"strings"
	"testing"
)

func validBlocks() Blocks {
	return Blocks{
		{0xa1, 0xb2, 0xc3, 0xd4},
		{0xab, 0xcd},
		{0xdc, 0xba},
		{0xad, 0xbc},
		{0xa1, 0xb2, 0xc3, 0xd4, 0xe5, 0xf6},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	blocks := validBlocks()
	text, err := Encode(blocks)
	if err != nil {
		t.Fatal(err)
	}
	if text != "a1b2c3d4-abcd-dcba-adbc-a1b2c3d4e5f6" {
		t.Fatalf("unexpected encoding: %s", text)
	}
	decoded, err := Decode(text)
	if err != nil {
		t.Fatal(err)
	}
	for i := range blocks {
		if !bytes.Equal(decoded[i], blocks[i]) {
			t.Fatalf("block %d mismatch after round trip", i)
		}
	}
}

func TestEncodeRejectsWrongWidths(t *testing.T) {
	blocks := validBlocks()
	blocks[0] = []byte{1, 2, 3}
	if _, err := Encode(blocks); err != ErrBlockLength {
		t.Fatalf("expected ErrBlockLength, got %v", err)
	}
	blocks = validBlocks()
	blocks[4] = append(blocks[4], 0)
	if _, err := Encode(blocks); err != ErrBlockLength {
		t.Fatalf("expected ErrBlockLength, got %v", err)
	}
}

func TestDecodeRejectsWrongGroupCount(t *testing.T) {
	if _, err := Decode("a1b2c3d4-abcd-dcba-adbc"); err != ErrBlockCount {
		t.Fatalf("expected ErrBlockCount, got %v", err)
	}
	if _, err := Decode("a1b2c3d4-abcd-dcba-adbc-a1b2c3d4e5f6-ffff"); err != ErrBlockCount {
		t.Fatalf("expected ErrBlockCount, got %v", err)
	}
}

func TestDecodeRejectsWrongGroupWidth(t *testing.T) {
	if _, err := Decode("a1b2c3-abcd-dcba-adbc-a1b2c3d4e5f6"); err != ErrBlockLength {
		t.Fatalf("expected ErrBlockLength, got %v", err)
	}
}

func TestDecodeRejectsNonHex(t *testing.T) {
	if _, err := Decode("a1b2c3zz-abcd-dcba-adbc-a1b2c3d4e5f6"); err != ErrNotHex {
		t.Fatalf("expected ErrNotHex, got %v", err)
	}
}

func TestDecodeAcceptsUppercaseHex(t *testing.T) {
	blocks := validBlocks()
	text, err := Encode(blocks)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(strings.ToUpper(text))
	if err != nil {
		t.Fatal(err)
	}
	for i := range blocks {
		if !bytes.Equal(decoded[i], blocks[i]) {
			t.Fatal("uppercase hex should decode to the same blocks")
		}
	}
}

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

// Package console implements the interactive text console for adding,
// decrypting and listing flags. It is built entirely on the core operations
// and only renders their errors for a human; it performs no cryptographic or
// structural logic itself.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cossacklabs/flagvault/flags"
	"github.com/cossacklabs/flagvault/protocol"
	"github.com/cossacklabs/flagvault/storage"
)

// Console runs the interactive menu loop over a line-oriented input and
// output pair.
type Console struct {
	store storage.Storage
	input *bufio.Reader
	out   io.Writer
}

// NewConsole returns a console over the given flag storage and IO.
func NewConsole(store storage.Storage, input io.Reader, out io.Writer) *Console {
	return &Console{store: store, input: bufio.NewReader(input), out: out}
}

func (console *Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(console.out, format, args...)
}

func (console *Console) readLine() (string, error) {
	line, err := console.input.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Decrypt loads the stored flags and renders the reconstructed secret, or
// the reason reconstruction failed.
func (console *Console) Decrypt() error {
	flagSet, err := console.store.Load()
	if err != nil {
		return err
	}
	if len(flagSet) == 0 {
		console.printf("|- You've done none of the challenges. XD\n")
		return nil
	}

	plain := make([]flags.Flag, len(flagSet))
	for i, flag := range flagSet {
		plain[i] = flag.Flag
	}
	results, err := protocol.DecryptFlags(plain)
	if err != nil {
		console.printf("|- Decrypt flags failed. Probably because you've not done all the challenges.\n")
		console.printf("|- Reason: %v\n", err)
		return nil
	}

	console.printf("|- Hooray! Here is something you want: %s\n", protocol.JoinSecret(results))
	return nil
}

// AddFlag reads a wrapped flag from input, validates it and stores it.
// A challenge solved before with different data asks for confirmation before
// being replaced.
func (console *Console) AddFlag() error {
	console.printf("Please type your flag: ")
	text, err := console.readLine()
	if err != nil {
		return err
	}

	flag, err := protocol.Unwrap(text)
	if err != nil {
		if errors.Is(err, flags.ErrFlagValidation) {
			console.printf("|- Validation for the flag is failed.\n")
		} else {
			console.printf("|- The flag is not valid.\n")
		}
		console.printf("|- Reason: %v\n", err)
		return nil
	}

	flagSet, err := console.store.Load()
	if err != nil {
		return err
	}

	for i, solved := range flagSet {
		if solved.ChallengeID() != flag.ChallengeID() {
			continue
		}
		if solved.Equal(flag) {
			console.printf("|- You've previously solved this challenge.\n")
			return nil
		}
		console.printf("|- You've previously solved a challenge with same ID but different data.\n")
		console.printf("Confirm to replace it? (Y/n) ")
		confirm, err := console.readLine()
		if err != nil {
			return err
		}
		answer := strings.ToLower(confirm)
		if answer != "" && answer != "y" {
			console.printf("|- The process was cancelled.\n")
			return nil
		}
		flagSet = append(flagSet[:i], flagSet[i+1:]...)
		console.printf("|- The old flag is removed and being replaced by the new one.\n")
		break
	}

	flagSet = append(flagSet, flag)
	if err := console.store.Save(flagSet); err != nil {
		return err
	}

	console.printf("|- Cheers! You've passed the challenge %d.\n", flag.ChallengeID())
	return nil
}

// ShowProgress lists the solved challenge IDs.
func (console *Console) ShowProgress() error {
	flagSet, err := console.store.Load()
	if err != nil {
		return err
	}
	if len(flagSet) == 0 {
		console.printf("|- You've done none of the challenges. XD\n")
		return nil
	}
	solved := make([]string, len(flagSet))
	for i, flag := range flagSet {
		solved[i] = strconv.Itoa(flag.ChallengeID())
	}
	console.printf("|- The challenge you've solved: %s (%d in total).\n", strings.Join(solved, ", "), len(flagSet))
	return nil
}

// Select renders the menu and dispatches one choice. It returns false when
// the user asked to exit.
func (console *Console) Select() (bool, error) {
	console.printf("Choose the operation by index:\n")
	console.printf("|- 1. Add and check a flag\n")
	console.printf("|- 2. Decrypt flags\n")
	console.printf("|- 3. Show current progress\n")
	console.printf("|- 0. Exit\n")
	console.printf("Choice: ")

	line, err := console.readLine()
	if err != nil {
		return false, err
	}

	entries := []func() error{console.AddFlag, console.Decrypt, console.ShowProgress}
	choice, err := strconv.Atoi(line)
	if err != nil || choice < 0 || choice > len(entries) {
		console.printf("|- You've typed an invalid choice~\n")
		return true, nil
	}
	if choice == 0 {
		return false, nil
	}
	return true, entries[choice-1]()
}

// Run is the entry of the interactive console. It loops until exit or until
// the input is exhausted; storage errors end the loop, core errors are only
// rendered.
func (console *Console) Run() error {
	for {
		proceed, err := console.Select()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !proceed {
			return nil
		}
	}
}

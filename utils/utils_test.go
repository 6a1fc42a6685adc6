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
package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe")
	exists, err := FileExists(path)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("file should not exist yet")
	}
	if err := os.WriteFile(path, []byte("data"), 0600); err != nil {
		t.Fatal(err)
	}
	exists, err = FileExists(path)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("file should exist")
	}
}

func TestAbsPath(t *testing.T) {
	path, err := AbsPath("relative/path")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(path) {
		t.Fatal("expected an absolute path")
	}
	path, err = AbsPath("~/config.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(path) || filepath.Base(path) != "config.yaml" {
		t.Fatalf("unexpected expansion: %s", path)
	}
}

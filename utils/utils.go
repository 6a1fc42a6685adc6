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

// Package utils contains various bits and pieces useful to the whole project.
package utils

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// AbsPath returns an absolute path with a leading ~ expanded to the home
// directory of the current user.
func AbsPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		usr, err := user.Current()
		if err != nil {
			return path, err
		}
		path = filepath.Join(usr.HomeDir, path[2:])
	}
	return filepath.Abs(path)
}

// FileExists returns true if the path exists, tolerating relative and ~ paths.
func FileExists(path string) (bool, error) {
	absPath, err := AbsPath(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReadFile reads the whole file at a possibly relative or ~ path.
func ReadFile(path string) ([]byte, error) {
	absPath, err := AbsPath(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(absPath)
}

// GetConfigPathByName returns the default config path of a service by its
// name.
func GetConfigPathByName(name string) string {
	return fmt.Sprintf("configs/%s.yaml", name)
}

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

package builder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// MetadataFileName is the challenge description expected at the root of
// every challenge source directory.
const MetadataFileName = "metadata.yaml"

// ErrNoMetadata is returned for source directories without a metadata file.
var ErrNoMetadata = errors.New("challenge has no " + MetadataFileName)

// Metadata describes how to build one challenge.
type Metadata struct {
	// Name of the challenge.
	Name string `yaml:"name"`
	// Build commands, run in order inside a scratch copy of the source with
	// the wrapped flag exposed in the environment.
	Build [][]string `yaml:"build"`
	// Artifacts are the paths, relative to the source root, that make up
	// the built challenge.
	Artifacts []string `yaml:"artifacts"`
	// Packages required to build and to run the challenge.
	Packages []PackageSpec `yaml:"packages"`
	// Configurations are one-off commands run on the production host.
	Configurations [][]string `yaml:"configurations"`
	// Prerun programs supervised on the production host.
	Prerun []PrerunProgram `yaml:"prerun"`
}

// LoadMetadata reads and validates the challenge metadata in dir.
func LoadMetadata(dir string) (*Metadata, error) {
	path := filepath.Join(dir, MetadataFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoMetadata
		}
		return nil, err
	}
	var metadata Metadata
	if err := yaml.UnmarshalStrict(data, &metadata); err != nil {
		return nil, fmt.Errorf("can't parse %s: %w", MetadataFileName, err)
	}
	if metadata.Name == "" {
		metadata.Name = filepath.Base(dir)
	}
	if len(metadata.Artifacts) == 0 {
		return nil, fmt.Errorf("challenge %s declares no artifacts", metadata.Name)
	}
	return &metadata, nil
}

// Prop returns the production property of a built challenge.
func (metadata *Metadata) Prop() ProdProperty {
	return ProdProperty{
		Configurations: metadata.Configurations,
		Packages:       metadata.Packages,
		PrerunPrograms: metadata.Prerun,
	}
}

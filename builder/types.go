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

// Package builder implements the challenge build and deploy pipeline: it
// turns challenge sources into deployable artifacts, installs their package
// requirements and supervises their production programs. The flag enters the
// pipeline only as an opaque construction parameter handed to build commands;
// there is no other coupling to the flag core.
package builder

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/cossacklabs/flagvault/flags"
)

// PropFileName is the production property file written next to built
// artifacts and read back by the runner.
const PropFileName = "flagvault-prop.yaml"

// FlagEnvironmentKey is the environment variable carrying the wrapped flag
// text into build commands.
const FlagEnvironmentKey = "FLAGVAULT_FLAG"

// Context is the challenge build context, the single hand-off point between
// the flag core and the pipeline.
type Context struct {
	Flag flags.Flag
}

// LoggerConfig describes where a supervised program's output goes.
type LoggerConfig struct {
	// Name is the base name of the log files.
	Name string `yaml:"name"`
	// Stdout enables logging of stdout.
	Stdout bool `yaml:"stdout"`
	// Stderr enables logging of stderr.
	Stderr bool `yaml:"stderr"`
}

// PrerunProgram is a program that runs before the user enters the
// environment. Daemon programs restart on exit until the runner stops.
type PrerunProgram struct {
	// Cmd is the command line, run with the challenge directory as working
	// directory.
	Cmd []string `yaml:"cmd"`
	// Daemon restarts the program whenever it exits.
	Daemon bool `yaml:"daemon"`
	// Disabled turns program output logging off entirely.
	LogDisabled bool `yaml:"log_disabled"`
	// Log overrides the default logger configuration. When nil and logging
	// is not disabled, both streams go to files named after the command.
	Log *LoggerConfig `yaml:"log"`
}

// loggerConfig resolves the effective logger configuration of the program.
func (program PrerunProgram) loggerConfig() *LoggerConfig {
	if program.LogDisabled {
		return nil
	}
	if program.Log != nil {
		return program.Log
	}
	name := ""
	for _, part := range program.Cmd {
		name += part
	}
	return &LoggerConfig{Name: filepath.Base(name), Stdout: true, Stderr: true}
}

// ProdProperty describes how to bring a built challenge into production:
// one-off configuration commands, package requirements and the programs to
// supervise.
type ProdProperty struct {
	Configurations [][]string    `yaml:"configurations"`
	Packages       []PackageSpec `yaml:"packages"`
	PrerunPrograms []PrerunProgram `yaml:"prerun"`
}

// Dump writes the property file into dir.
func (prop ProdProperty) Dump(dir string) error {
	data, err := yaml.Marshal(prop)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, PropFileName), data, 0644)
}

// LoadProdProperty reads the property file from dir.
func LoadProdProperty(dir string) (ProdProperty, error) {
	data, err := os.ReadFile(filepath.Join(dir, PropFileName))
	if err != nil {
		return ProdProperty{}, err
	}
	var prop ProdProperty
	if err := yaml.UnmarshalStrict(data, &prop); err != nil {
		return ProdProperty{}, fmt.Errorf("can't parse %s: %w", PropFileName, err)
	}
	return prop, nil
}

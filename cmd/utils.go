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

// Package cmd contains shared pieces of the flagvault command line utilities:
// argument parsing merged with per-service yaml configs, config generation
// and signal handling.
package cmd

import (
	flag_ "flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"reflect"

	"github.com/cossacklabs/flagvault/utils"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

var (
	config     = flag_.String("config_file", "", "path to config")
	dumpconfig = flag_.Bool("dump_config", false, "dump config")
)

func init() {
	// override default usage message by ours
	flag_.CommandLine.Usage = PrintDefaults
}

// SignalCallback callback function
type SignalCallback func()

// SignalHandler sends Signal to listeners and call registered callbacks
type SignalHandler struct {
	ch        chan os.Signal
	callbacks []SignalCallback
	signals   []os.Signal
}

// NewSignalHandler returns new SignalHandler registered for particular os.Signals
func NewSignalHandler(handledSignals []os.Signal) (*SignalHandler, error) {
	return &SignalHandler{ch: make(chan os.Signal), signals: handledSignals}, nil
}

// GetChannel returns channel of os.Signal
func (handler *SignalHandler) GetChannel() chan os.Signal {
	return handler.ch
}

// AddCallback to SignalHandler
func (handler *SignalHandler) AddCallback(callback SignalCallback) {
	handler.callbacks = append(handler.callbacks, callback)
}

// Register should be called as goroutine
func (handler *SignalHandler) Register() {
	for _, osSignal := range handler.signals {
		signal.Notify(handler.ch, osSignal)
	}
	<-handler.ch
	for _, callback := range handler.callbacks {
		callback()
	}
	os.Exit(1)
}

func isZeroValue(flag *flag_.Flag, value string) bool {
	/* took from flag/flag.go */

	// Build a zero value of the flag's Value type, and see if the
	// result of calling its String method equals the value passed in.
	// This works unless the Value type is itself an interface type.
	typ := reflect.TypeOf(flag.Value)
	var z reflect.Value
	if typ.Kind() == reflect.Ptr {
		z = reflect.New(typ.Elem())
	} else {
		z = reflect.Zero(typ)
	}
	if value == z.Interface().(flag_.Value).String() {
		return true
	}

	switch value {
	case "false", "", "0":
		return true
	}
	return false
}

// PrintDefaults prints registered flags in --arg form
func PrintDefaults() {
	/* took from flag/flag.go and overrided arg display format (-/--) */
	flag_.CommandLine.VisitAll(func(flag *flag_.Flag) {
		var s string
		if len(flag.Name) > 2 {
			s = fmt.Sprintf("  --%s", flag.Name)
		} else {
			s = fmt.Sprintf("  -%s", flag.Name)
		}
		if len(s) <= 4 {
			s += "\t"
		} else {
			s += "\n    \t"
		}
		s += flag.Usage
		if !isZeroValue(flag, flag.DefValue) {
			getter, ok := flag.Value.(flag_.Getter)
			if !ok {
				return
			}
			if _, ok := getter.Get().(string); ok {
				s += fmt.Sprintf(" (default %q)", flag.DefValue)
			} else {
				s += fmt.Sprintf(" (default %v)", flag.DefValue)
			}
		}
		fmt.Fprint(os.Stderr, s, "\n")
	})
}

// GenerateYaml writes registered flags as yaml config to output
func GenerateYaml(output io.Writer, useDefault bool) {
	flag_.CommandLine.VisitAll(func(flag *flag_.Flag) {
		var s string
		if useDefault {
			s = fmt.Sprintf("# %v\n%v: %v\n", flag.Usage, flag.Name, flag.DefValue)
		} else {
			s = fmt.Sprintf("# %v\n%v: %v\n", flag.Usage, flag.Name, flag.Value)
		}
		fmt.Fprint(output, s, "\n")
	})
}

// DumpConfig writes the yaml config of the current flag set to configPath
func DumpConfig(configPath, serviceName string, useDefault bool) error {
	absPath, err := utils.AbsPath(configPath)
	if err != nil {
		return err
	}
	if *config != "" {
		if absPath, err = utils.AbsPath(*config); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0744); err != nil {
		return err
	}
	file, err := os.Create(absPath)
	if err != nil {
		return err
	}
	defer file.Close()

	GenerateYaml(file, useDefault)
	log.Infof("Config dumped to %s", configPath)
	return nil
}

// Parse parses flags from the command line and a yaml config: CLI args win,
// yaml fills the rest. With --dump_config the config is generated and the
// process exits.
func Parse(configPath, serviceName string) error {
	// first parse using builtin flag
	if err := flag_.CommandLine.Parse(os.Args[1:]); err != nil {
		return err
	}
	if *config != "" {
		configPath = *config
	}

	var args []string
	// parse yaml and add params that weren't passed from cli
	if configPath != "" {
		configPath, err := utils.AbsPath(configPath)
		if err != nil {
			return err
		}
		exists, err := utils.FileExists(configPath)
		if err != nil {
			return err
		}
		if exists {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return err
			}
			yamlConfig := map[string]interface{}{}
			if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
				return err
			}
			setArgs := make(map[string]bool)
			flag_.Visit(func(flag *flag_.Flag) {
				setArgs[flag.Name] = true
			})
			// generate args list for flag.Parse as it was from cli args
			flag_.VisitAll(func(flag *flag_.Flag) {
				// generate only args that weren't set from cli
				if _, alreadySet := setArgs[flag.Name]; !alreadySet {
					if value, yamlOk := yamlConfig[flag.Name]; yamlOk && value != nil {
						args = append(args, fmt.Sprintf("--%v=%v", flag.Name, value))
					}
				}
			})
		}
	}
	// set options from config that weren't set by cli
	if err := flag_.CommandLine.Parse(args); err != nil {
		return err
	}
	if *dumpconfig {
		if err := DumpConfig(configPath, serviceName, true); err != nil {
			return err
		}
		os.Exit(0)
	}
	return nil
}

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
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/cossacklabs/flagvault/logging"
)

// Challenge is a built challenge directory together with its production
// property.
type Challenge struct {
	Path string
	Prop ProdProperty
}

// LoadChallenge reads the production property of a built challenge.
func LoadChallenge(path string) (Challenge, error) {
	prop, err := LoadProdProperty(path)
	if err != nil {
		return Challenge{}, err
	}
	return Challenge{Path: path, Prop: prop}, nil
}

// Metric labels of the runner.
const (
	ChallengeLabel = "challenge"
	ProgramLabel   = "program"
)

var (
	programRestartCounter *prometheus.CounterVec
	registerMetricsOnce   sync.Once
)

// RegisterRunnerMetrics registers the runner's prometheus metrics.
func RegisterRunnerMetrics() {
	registerMetricsOnce.Do(func() {
		programRestartCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flagvault_runner_program_starts_total",
				Help: "Number of starts of supervised prerun programs",
			}, []string{ChallengeLabel, ProgramLabel})
		prometheus.MustRegister(programRestartCounter)
	})
}

// Runner supervises the prerun programs of built challenges. Daemon programs
// are restarted whenever they exit until the runner stops.
type Runner struct {
	challenges []Challenge
	installer  *Installer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner returns a runner over the given challenges.
func NewRunner(challenges []Challenge) *Runner {
	return &Runner{challenges: challenges, installer: NewInstaller()}
}

// Configure prepares the production environment of every challenge: installs
// required packages and runs the one-off configuration commands in the
// challenge directory.
func (runner *Runner) Configure() error {
	for _, challenge := range runner.challenges {
		packages, err := ResolvePackages(challenge.Prop.Packages)
		if err != nil {
			return err
		}
		if err := runner.installer.Install(packages); err != nil {
			return err
		}
		for _, command := range challenge.Prop.Configurations {
			if len(command) == 0 {
				continue
			}
			cmd := exec.Command(command[0], command[1:]...)
			cmd.Dir = challenge.Path
			if output, err := cmd.CombinedOutput(); err != nil {
				log.WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantConfigureRuntime).
					WithField("cmd", command).WithError(err).Errorf("Configuration command failed: %s", output)
				return err
			}
		}
	}
	return nil
}

// Start launches every prerun program. It returns immediately; programs run
// until Stop is called or, for non-daemon programs, until they exit.
func (runner *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	runner.cancel = cancel
	for _, challenge := range runner.challenges {
		for _, program := range challenge.Prop.PrerunPrograms {
			if len(program.Cmd) == 0 {
				continue
			}
			runner.wg.Add(1)
			go runner.supervise(ctx, challenge, program)
		}
	}
}

// Stop terminates every supervised program and waits for the supervisors to
// return.
func (runner *Runner) Stop() {
	if runner.cancel != nil {
		runner.cancel()
	}
	runner.wg.Wait()
}

// supervise runs one program, restarting daemons until the context is done.
func (runner *Runner) supervise(ctx context.Context, challenge Challenge, program PrerunProgram) {
	defer runner.wg.Done()
	logger := log.WithField("challenge", filepath.Base(challenge.Path)).WithField("cmd", program.Cmd)
	for {
		if err := runner.runProgram(ctx, challenge, program); err != nil && ctx.Err() == nil {
			logger.WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantSuperviseProgram).
				WithError(err).Errorln("Prerun program failed")
		}
		if !program.Daemon || ctx.Err() != nil {
			return
		}
		logger.Debugln("Restart daemon program")
	}
}

// runProgram starts the program once and waits for it.
func (runner *Runner) runProgram(ctx context.Context, challenge Challenge, program PrerunProgram) error {
	cmd := exec.CommandContext(ctx, program.Cmd[0], program.Cmd[1:]...)
	cmd.Dir = challenge.Path

	var logs []*os.File
	if config := program.loggerConfig(); config != nil {
		if config.Stdout {
			file, err := openLog(challenge.Path, config.Name+".stdout.log")
			if err != nil {
				return err
			}
			logs = append(logs, file)
			cmd.Stdout = file
		}
		if config.Stderr {
			file, err := openLog(challenge.Path, config.Name+".stderr.log")
			if err != nil {
				return err
			}
			logs = append(logs, file)
			cmd.Stderr = file
		}
	}
	defer func() {
		for _, file := range logs {
			file.Close()
		}
	}()

	if programRestartCounter != nil {
		programRestartCounter.With(prometheus.Labels{
			ChallengeLabel: filepath.Base(challenge.Path),
			ProgramLabel:   program.Cmd[0],
		}).Inc()
	}
	return cmd.Run()
}

func openLog(dir, name string) (*os.File, error) {
	return os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
}

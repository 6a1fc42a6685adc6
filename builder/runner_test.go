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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builtChallenge(t *testing.T, prop ProdProperty) Challenge {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, prop.Dump(dir))
	challenge, err := LoadChallenge(dir)
	require.NoError(t, err)
	return challenge
}

func TestRunnerConfigure(t *testing.T) {
	challenge := builtChallenge(t, ProdProperty{
		Configurations: [][]string{{"sh", "-c", "printf configured > state"}},
	})
	runner := NewRunner([]Challenge{challenge})
	require.NoError(t, runner.Configure())

	state, err := os.ReadFile(filepath.Join(challenge.Path, "state"))
	require.NoError(t, err)
	assert.Equal(t, "configured", string(state))
}

func TestRunnerConfigureFailure(t *testing.T) {
	challenge := builtChallenge(t, ProdProperty{
		Configurations: [][]string{{"sh", "-c", "exit 1"}},
	})
	assert.Error(t, NewRunner([]Challenge{challenge}).Configure())
}

func TestRunnerOneShotProgram(t *testing.T) {
	challenge := builtChallenge(t, ProdProperty{
		PrerunPrograms: []PrerunProgram{{
			Cmd: []string{"sh", "-c", "printf done > oneshot"},
			Log: &LoggerConfig{Name: "oneshot", Stdout: true, Stderr: true},
		}},
	})
	runner := NewRunner([]Challenge{challenge})
	runner.Start()
	waitForFile(t, filepath.Join(challenge.Path, "oneshot"))
	runner.Stop()


	_, err := os.Stat(filepath.Join(challenge.Path, "oneshot.stdout.log"))
	assert.NoError(t, err)
}

func TestRunnerDaemonRestartsUntilStopped(t *testing.T) {
	challenge := builtChallenge(t, ProdProperty{
		PrerunPrograms: []PrerunProgram{{
			Cmd:         []string{"sh", "-c", "printf x >> runs"},
			Daemon:      true,
			LogDisabled: true,
		}},
	})
	runner := NewRunner([]Challenge{challenge})
	runner.Start()

	path := filepath.Join(challenge.Path, "runs")
	deadline := time.Now().Add(5 * time.Second)
	for {
		data, err := os.ReadFile(path)
		if err == nil && len(data) >= 2 {
			break
		}
		if time.Now().After(deadline) {
			runner.Stop()
			t.Fatal("daemon program should have been restarted")
		}
		time.Sleep(10 * time.Millisecond)
	}
	runner.Stop()
}

func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(path); err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("file %s did not appear", path)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

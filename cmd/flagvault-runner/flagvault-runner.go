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

// Package main is entry point for the FlagVault runner. The runner hosts
// built challenges on the game server: it installs their packages, applies
// the configuration commands and supervises the long-running programs until
// terminated.
package main

import (
	"flag"
	"os"
	"strings"
	"syscall"

	"github.com/cossacklabs/flagvault/builder"
	"github.com/cossacklabs/flagvault/cmd"
	"github.com/cossacklabs/flagvault/logging"
	"github.com/cossacklabs/flagvault/utils"
	log "github.com/sirupsen/logrus"
)

var (
	// defaultConfigPath relative path to config which will be parsed as default
	defaultConfigPath = utils.GetConfigPathByName("flagvault-runner")
	serviceName       = "flagvault-runner"
)

func main() {
	challengeDirs := flag.String("challenge_dirs", "", "Built challenge folders separated by ':'")
	prometheusAddress := flag.String("incoming_connection_prometheus_metrics_string", "", "URL of endpoint for prometheus that will be used for metrics")
	loggingFormat := flag.String("logging_format", "text", "Logging format: plaintext, json or CEF")
	debug := flag.Bool("d", false, "Turn on debug logging")

	logging.SetLogLevel(logging.LogVerbose)

	err := cmd.Parse(defaultConfigPath, serviceName)
	if err != nil {
		log.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantReadServiceConfig).
			Errorln("Can't parse args")
		os.Exit(1)
	}

	logging.CustomizeLogging(*loggingFormat, serviceName)
	if *debug {
		logging.SetLogLevel(logging.LogDebug)
	}

	dirs := strings.FieldsFunc(*challengeDirs, func(r rune) bool { return r == ':' })
	if len(dirs) == 0 {
		log.Errorln("Challenge folders are required: --challenge_dirs")
		os.Exit(1)
	}

	challenges := make([]builder.Challenge, 0, len(dirs))
	for _, dir := range dirs {
		challenge, err := builder.LoadChallenge(dir)
		if err != nil {
			log.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantConfigureRuntime).
				Errorf("Can't load challenge from %v", dir)
			os.Exit(1)
		}
		challenges = append(challenges, challenge)
	}

	if *prometheusAddress != "" {
		builder.RegisterRunnerMetrics()
		_, prometheusHTTPServer, err := cmd.RunPrometheusHTTPHandler(*prometheusAddress)
		if err != nil {
			log.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorPrometheusHTTPHandler).
				Errorln("Can't run prometheus handler")
			os.Exit(1)
		}
		log.Infof("Configured to send metrics and stats to `incoming_connection_prometheus_metrics_string`")
		defer prometheusHTTPServer.Close()
	}

	runner := builder.NewRunner(challenges)
	if err := runner.Configure(); err != nil {
		log.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantConfigureRuntime).
			Errorln("Can't configure challenges")
		os.Exit(1)
	}

	sigHandler, err := cmd.NewSignalHandler([]os.Signal{os.Interrupt, syscall.SIGTERM})
	if err != nil {
		log.WithError(err).Errorln("Can't register signal handler")
		os.Exit(1)
	}
	sigHandler.AddCallback(runner.Stop)

	runner.Start()
	log.Infof("Supervising %v challenges", len(challenges))
	sigHandler.Register()
}

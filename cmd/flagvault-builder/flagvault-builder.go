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

// Package main is entry point for the FlagVault builder utility. The builder
// takes challenge sources listed on the command line, bakes one flag of the
// split secret into each of them and writes the production challenge
// directories next to their build properties.
package main

import (
	"flag"
	"os"
	"strings"

	"github.com/cossacklabs/flagvault/builder"
	"github.com/cossacklabs/flagvault/cmd"
	"github.com/cossacklabs/flagvault/logging"
	"github.com/cossacklabs/flagvault/protocol"
	"github.com/cossacklabs/flagvault/utils"
	log "github.com/sirupsen/logrus"
)

var (
	// defaultConfigPath relative path to config which will be parsed as default
	defaultConfigPath = utils.GetConfigPathByName("flagvault-builder")
	serviceName       = "flagvault-builder"
)

func main() {
	secret := flag.String("secret", "", "Secret to split between the built challenges")
	password := flag.String("password", "", "Password the flag cipher is derived from")
	sources := flag.String("source_dirs", "", "Challenge source folders separated by ':', one per flag")
	outdir := flag.String("output_dir", "build", "Folder where built challenges will be saved")
	overwrite := flag.Bool("overwrite", false, "Replace already built challenges in the output folder")
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

	if *secret == "" {
		log.Errorln("Secret is required: --secret")
		os.Exit(1)
	}
	if *password == "" {
		log.Errorln("Password is required: --password")
		os.Exit(1)
	}
	sourceDirs := strings.FieldsFunc(*sources, func(r rune) bool { return r == ':' })
	if len(sourceDirs) == 0 {
		log.Errorln("Challenge sources are required: --source_dirs")
		os.Exit(1)
	}

	flagList, err := protocol.GenerateFlags(protocol.SplitSecret([]byte(*secret)), []byte(*password))
	if err != nil {
		log.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantGenerateFlag).
			Errorln("Can't generate flags")
		os.Exit(1)
	}

	if err := builder.NewBuilder().BuildAll(sourceDirs, flagList, *outdir, *overwrite); err != nil {
		log.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantBuildChallenge).
			Errorln("Can't build challenges")
		os.Exit(1)
	}
	log.Infof("Built %v challenges into %v", len(sourceDirs), *outdir)
}

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

// Package main is entry point for the FlagVault maker utility. The maker
// splits a secret into flags, prints them in the wrapped form handed out to
// challenge authors and optionally stores the whole set for later checks.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cossacklabs/flagvault/cmd"
	"github.com/cossacklabs/flagvault/flags"
	"github.com/cossacklabs/flagvault/logging"
	"github.com/cossacklabs/flagvault/protocol"
	"github.com/cossacklabs/flagvault/storage"
	"github.com/cossacklabs/flagvault/utils"
	log "github.com/sirupsen/logrus"
)

var (
	// defaultConfigPath relative path to config which will be parsed as default
	defaultConfigPath = utils.GetConfigPathByName("flagvault-maker")
	serviceName       = "flagvault-maker"
)

func main() {
	secret := flag.String("secret", "", "Secret to split into flags")
	password := flag.String("password", "", "Password the flag cipher is derived from")
	flagsFile := flag.String("flags_output_file", "", "File where the generated flag set will be saved")
	bare := flag.Bool("bare", false, "Print flags without the flag{} envelope")
	loggingFormat := flag.String("logging_format", "text", "Logging format: plaintext, json or CEF")

	logging.SetLogLevel(logging.LogVerbose)

	err := cmd.Parse(defaultConfigPath, serviceName)
	if err != nil {
		log.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantReadServiceConfig).
			Errorln("Can't parse args")
		os.Exit(1)
	}

	logging.CustomizeLogging(*loggingFormat, serviceName)

	if *secret == "" {
		log.Errorln("Secret is required: --secret")
		os.Exit(1)
	}
	if *password == "" {
		log.Errorln("Password is required: --password")
		os.Exit(1)
	}

	generated, err := protocol.GenerateFlags(protocol.SplitSecret([]byte(*secret)), []byte(*password))
	if err != nil {
		log.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantGenerateFlag).
			Errorln("Can't generate flags")
		os.Exit(1)
	}

	for _, generatedFlag := range generated {
		var text string
		if *bare {
			text, err = protocol.EncodeFlag(generatedFlag)
		} else {
			text, err = protocol.Wrap(generatedFlag)
		}
		if err != nil {
			log.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantGenerateFlag).
				Errorln("Can't encode flag")
			os.Exit(1)
		}
		fmt.Println(text)
	}

	if *flagsFile != "" {
		store, err := storage.NewFilesystemStorage(*flagsFile)
		if err != nil {
			log.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantSaveFlags).
				Errorln("Can't open flags file")
			os.Exit(1)
		}
		flagSet := make([]flags.ValidatableFlag, len(generated))
		for i, generatedFlag := range generated {
			flagSet[i] = flags.MakeValidatable(generatedFlag)
		}
		if err := store.Save(flagSet); err != nil {
			log.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantSaveFlags).
				Errorln("Can't save flags")
			os.Exit(1)
		}
	}
}

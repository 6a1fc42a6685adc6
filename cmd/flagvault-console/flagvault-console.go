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

// Package main is entry point for the FlagVault console. The console is the
// player-facing interactive menu: it collects the flags discovered during the
// game, keeps them between sessions and reconstructs the split secret once
// every flag was entered.
package main

import (
	"flag"
	"os"

	bolt "go.etcd.io/bbolt"

	"github.com/cossacklabs/flagvault/cmd"
	"github.com/cossacklabs/flagvault/console"
	"github.com/cossacklabs/flagvault/logging"
	"github.com/cossacklabs/flagvault/storage"
	"github.com/cossacklabs/flagvault/utils"
	log "github.com/sirupsen/logrus"
)

var (
	// defaultConfigPath relative path to config which will be parsed as default
	defaultConfigPath = utils.GetConfigPathByName("flagvault-console")
	serviceName       = "flagvault-console"
)

func main() {
	flagsFile := flag.String("flags_file", ".flags", "File where entered flags are kept between sessions")
	flagsDB := flag.String("flags_db", "", "BoltDB database for entered flags, used instead of --flags_file when set")
	loggingFormat := flag.String("logging_format", "text", "Logging format: plaintext, json or CEF")
	verbose := flag.Bool("v", false, "Log to stderr all INFO, WARNING and ERROR logs")

	err := cmd.Parse(defaultConfigPath, serviceName)
	if err != nil {
		log.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantReadServiceConfig).
			Errorln("Can't parse args")
		os.Exit(1)
	}

	logging.CustomizeLogging(*loggingFormat, serviceName)
	if *verbose {
		logging.SetLogLevel(logging.LogVerbose)
	} else {
		logging.SetLogLevel(logging.LogDiscard)
	}

	var store storage.Storage
	if *flagsDB != "" {
		db, err := bolt.Open(*flagsDB, 0600, nil)
		if err != nil {
			log.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantLoadFlags).
				Errorln("Can't open flags database")
			os.Exit(1)
		}
		defer db.Close()
		store = storage.NewBoltStorage(db)
	} else {
		store, err = storage.NewFilesystemStorage(*flagsFile)
		if err != nil {
			log.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantLoadFlags).
				Errorln("Can't open flags file")
			os.Exit(1)
		}
	}

	if err := console.NewConsole(store, os.Stdin, os.Stdout).Run(); err != nil {
		log.WithError(err).Errorln("Console session failed")
		os.Exit(1)
	}
}

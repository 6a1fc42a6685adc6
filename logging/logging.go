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

// Package logging configures log formatters and verbosity for flagvault
// binaries. The core packages never log; only the binaries and the challenge
// runner do, and they render core errors for humans instead of suppressing
// them.
package logging

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Log modes.
const (
	LogDebug = iota
	LogVerbose
	LogDiscard
)

// Supported log output formats.
const (
	PlaintextFormatString = "plaintext"
	JSONFormatString      = "json"
)

// Log entry field keys shared by all services.
const (
	// FieldKeyEventCode tags error entries with a stable event code.
	FieldKeyEventCode = "code"
	// FieldKeyServiceName tags entries with the emitting service.
	FieldKeyServiceName = "service_name"
)

// SetLogLevel sets logging level.
func SetLogLevel(level int) {
	switch level {
	case LogDebug:
		log.SetLevel(log.DebugLevel)
	case LogVerbose:
		log.SetLevel(log.InfoLevel)
	case LogDiscard:
		log.SetLevel(log.WarnLevel)
	default:
		panic(fmt.Sprintf("incorrect log level - %v", level))
	}
}

// GetLogLevel returns the current log mode.
func GetLogLevel() int {
	if log.GetLevel() == log.DebugLevel {
		return LogDebug
	}
	if log.GetLevel() == log.InfoLevel {
		return LogVerbose
	}
	return LogDiscard
}

// TextFormatter returns a logrus.TextFormatter with our settings.
func TextFormatter() log.Formatter {
	return &log.TextFormatter{
		FullTimestamp:    true,
		TimestampFormat:  time.RFC3339,
		QuoteEmptyFields: true,
	}
}

// JSONFormatter returns a logrus.JSONFormatter carrying the service name in
// every entry.
func JSONFormatter(serviceName string) log.Formatter {
	return &serviceFormatter{
		formatter:   &log.JSONFormatter{TimestampFormat: time.RFC3339},
		serviceName: serviceName,
	}
}

type serviceFormatter struct {
	formatter   log.Formatter
	serviceName string
}

func (f *serviceFormatter) Format(entry *log.Entry) ([]byte, error) {
	if _, ok := entry.Data[FieldKeyServiceName]; !ok {
		entry.Data[FieldKeyServiceName] = f.serviceName
	}
	return f.formatter.Format(entry)
}

// CustomizeLogging applies the chosen format to the standard logger.
func CustomizeLogging(format, serviceName string) {
	switch strings.ToLower(format) {
	case JSONFormatString:
		log.SetFormatter(JSONFormatter(serviceName))
	default:
		log.SetFormatter(TextFormatter())
	}
	log.Debugf("Changed logging format to %s", format)
}

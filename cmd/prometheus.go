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

package cmd

import (
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/cossacklabs/flagvault/logging"
)

// DefaultPrometheusTimeout limits how long the metrics endpoint may spend on
// one request.
const DefaultPrometheusTimeout = time.Second * 10

// RunPrometheusHTTPHandler runs in goroutine http server that process with
// address and export prometheus metrics
func RunPrometheusHTTPHandler(address string) (net.Listener, *http.Server, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		ReadTimeout:  DefaultPrometheusTimeout,
		WriteTimeout: DefaultPrometheusTimeout,
		Handler:      mux,
	}
	go func() {
		logrus.WithField("address", address).Infoln("Start prometheus http handler")
		if err := server.Serve(listener); err != http.ErrServerClosed {
			logrus.WithField(logging.FieldKeyEventCode, logging.EventCodeErrorPrometheusHTTPHandler).
				WithError(err).Errorln("Error from HTTP server that process prometheus metrics")
		}
	}()
	return listener, server, nil
}

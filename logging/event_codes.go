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

package logging

// Event codes for different events in flagvault services, splitted by groups.
const (
	// 100 .. 200 some events
	EventCodeGeneral = 100

	// 500 .. 600 errors
	EventCodeErrorGeneral               = 500
	EventCodeErrorWrongParam            = 501
	EventCodeErrorCantReadServiceConfig = 502

	// flag handling
	EventCodeErrorCantLoadFlags    = 510
	EventCodeErrorCantSaveFlags    = 511
	EventCodeErrorCantGenerateFlag = 512
	EventCodeErrorCantDecryptFlags = 513

	// challenge pipeline
	EventCodeErrorCantBuildChallenge    = 520
	EventCodeErrorCantInstallPackage    = 521
	EventCodeErrorCantConfigureRuntime  = 522
	EventCodeErrorCantSuperviseProgram  = 523
	EventCodeErrorPrometheusHTTPHandler = 524
)

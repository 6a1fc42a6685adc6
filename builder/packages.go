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
	"fmt"
	"os/exec"

	log "github.com/sirupsen/logrus"
)

// Package is something installable with requirements of its own.
type Package interface {
	// Name identifies the package; installation happens once per name.
	Name() string
	// RequiredPackages are installed before the package itself.
	RequiredPackages() []Package
	// Install performs the installation.
	Install() error
}

// PackageSpec is the yaml description of a command-installed package.
// Requirements reference other specs of the same challenge by name.
type PackageSpec struct {
	Name     string   `yaml:"name"`
	Install  []string `yaml:"install"`
	Requires []string `yaml:"requires"`
}

// commandPackage installs by running a command line.
type commandPackage struct {
	name     string
	install  []string
	requires []Package
}

// Name implements Package.
func (pkg *commandPackage) Name() string {
	return pkg.name
}

// RequiredPackages implements Package.
func (pkg *commandPackage) RequiredPackages() []Package {
	return pkg.requires
}

// Install implements Package.
func (pkg *commandPackage) Install() error {
	if len(pkg.install) == 0 {
		return nil
	}
	log.WithField("package", pkg.name).Infoln("Install package")
	output, err := exec.Command(pkg.install[0], pkg.install[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("can't install package %s: %w (%s)", pkg.name, err, output)
	}
	return nil
}

// ResolvePackages links package specs into installable packages, resolving
// requirement names within the same spec list.
func ResolvePackages(specs []PackageSpec) ([]Package, error) {
	byName := make(map[string]*commandPackage, len(specs))
	packages := make([]Package, 0, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("package without a name")
		}
		if _, ok := byName[spec.Name]; ok {
			return nil, fmt.Errorf("duplicated package %s", spec.Name)
		}
		pkg := &commandPackage{name: spec.Name, install: spec.Install}
		byName[spec.Name] = pkg
		packages = append(packages, pkg)
	}
	for i, spec := range specs {
		for _, required := range spec.Requires {
			pkg, ok := byName[required]
			if !ok {
				return nil, fmt.Errorf("package %s requires unknown package %s", spec.Name, required)
			}
			byName[specs[i].Name].requires = append(byName[specs[i].Name].requires, pkg)
		}
	}
	return packages, nil
}

// Installer installs packages and their requirements, each at most once.
type Installer struct {
	installed map[string]bool
}

// NewInstaller returns an installer with an empty installed set.
func NewInstaller() *Installer {
	return &Installer{installed: make(map[string]bool)}
}

// Install installs the requirements of every package depth-first, then the
// package itself. Already installed names are skipped, which also keeps
// requirement cycles from recursing forever.
func (installer *Installer) Install(packages []Package) error {
	for _, pkg := range packages {
		if installer.installed[pkg.Name()] {
			continue
		}
		installer.installed[pkg.Name()] = true
		if err := installer.Install(pkg.RequiredPackages()); err != nil {
			return err
		}
		if err := pkg.Install(); err != nil {
			return err
		}
	}
	return nil
}

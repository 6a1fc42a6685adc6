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
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/cossacklabs/flagvault/flags"
	"github.com/cossacklabs/flagvault/protocol"
)

// Errors returned on incorrect builder usage.
var (
	ErrOutdirExists  = errors.New("output directory or file already exists")
	ErrFlagsMismatch = errors.New("too many or too few flags for challenges")
)

// Builder builds challenges in scratch directories and collects their
// artifacts. One builder shares one installed package set across builds.
type Builder struct {
	installer *Installer
}

// NewBuilder returns a builder with a fresh package installer.
func NewBuilder() *Builder {
	return &Builder{installer: NewInstaller()}
}

// Build builds the challenge at source with the given context into outdir.
// The source is copied into a scratch directory, packages are installed,
// build commands run with the wrapped flag in the environment, declared
// artifacts move into outdir together with the production property file.
func (builder *Builder) Build(source string, ctx Context, outdir string, overwrite bool) error {
	if _, err := os.Stat(outdir); err == nil {
		if !overwrite {
			return ErrOutdirExists
		}
		if err := os.RemoveAll(outdir); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return err
	}

	scratch, err := os.MkdirTemp("", "flagvault-build")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	if err := copyTree(source, scratch); err != nil {
		return err
	}

	metadata, err := LoadMetadata(scratch)
	if err != nil {
		return err
	}
	logger := log.WithField("challenge", metadata.Name)

	packages, err := ResolvePackages(metadata.Packages)
	if err != nil {
		return err
	}
	if err := builder.installer.Install(packages); err != nil {
		return err
	}

	wrapped, err := protocol.Wrap(ctx.Flag)
	if err != nil {
		return err
	}
	for _, command := range metadata.Build {
		if len(command) == 0 {
			continue
		}
		logger.WithField("cmd", command).Debugln("Run build command")
		cmd := exec.Command(command[0], command[1:]...)
		cmd.Dir = scratch
		cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%s", FlagEnvironmentKey, wrapped))
		output, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("build command %v failed: %w (%s)", command, err, output)
		}
	}

	for _, artifact := range metadata.Artifacts {
		from := filepath.Join(scratch, artifact)
		to := filepath.Join(outdir, filepath.Base(artifact))
		if err := moveTree(from, to); err != nil {
			return fmt.Errorf("can't collect artifact %s: %w", artifact, err)
		}
	}

	if err := metadata.Prop().Dump(outdir); err != nil {
		return err
	}
	logger.Infoln("Challenge built")
	return nil
}

// BuildAll builds each source with the flag of the same index into a
// subdirectory of outdir named after the source directory.
func (builder *Builder) BuildAll(sources []string, flagList []flags.Flag, outdir string, overwrite bool) error {
	if len(flagList) != len(sources) {
		return ErrFlagsMismatch
	}
	if _, err := os.Stat(outdir); err == nil {
		if !overwrite {
			return ErrOutdirExists
		}
		if err := os.RemoveAll(outdir); err != nil {
			return err
		}
	}
	for i, source := range sources {
		target := filepath.Join(outdir, filepath.Base(filepath.Clean(source)))
		if err := builder.Build(source, Context{Flag: flagList[i]}, target, false); err != nil {
			return err
		}
	}
	return nil
}

// copyTree copies the whole directory tree from src into dst, which must
// already exist or be creatable.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, relative)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// moveTree moves a file or directory across filesystems: rename when
// possible, copy and remove otherwise.
func moveTree(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
			return err
		}
		if err := copyTree(src, dst); err != nil {
			return err
		}
	} else if err := copyFile(src, dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

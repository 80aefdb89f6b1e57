// Package imagespec renders the container build recipe for a WSGI
// application: fixed runtime, dependencies resolved before the source tree
// is copied, and a single entry command.
package imagespec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gantryhq/gantry/internal/launcher"
)

// DefaultBaseImage is the runtime the recipe pins when the config names
// none.
const DefaultBaseImage = "python:3.11-slim"

// Spec describes one runnable image. Immutable once constructed; a change
// means a wholesale rebuild.
type Spec struct {
	// BaseImage is the fixed language runtime, e.g. python:3.11-slim.
	BaseImage string

	// WorkDir is the working directory inside the image.
	WorkDir string

	// Manifest is the dependency manifest path relative to the build
	// context, e.g. requirements.txt.
	Manifest string

	// Launch is the validated launch shape baked into the entry command.
	Launch launcher.Settings
}

// New fills defaults and validates the spec.
func New(baseImage, manifest string, launch launcher.Settings) (Spec, error) {
	spec := Spec{
		BaseImage: baseImage,
		WorkDir:   "/app",
		Manifest:  manifest,
		Launch:    launch,
	}
	if spec.BaseImage == "" {
		spec.BaseImage = DefaultBaseImage
	}
	if spec.Manifest == "" {
		spec.Manifest = "requirements.txt"
	}

	if strings.ContainsAny(spec.BaseImage, " \t\n") {
		return Spec{}, fmt.Errorf("base image %q contains whitespace", spec.BaseImage)
	}
	if strings.HasPrefix(spec.Manifest, "/") || strings.Contains(spec.Manifest, "..") {
		return Spec{}, fmt.Errorf("manifest path %q must be relative to the build context", spec.Manifest)
	}
	if _, err := launch.CommandTemplate(); err != nil {
		return Spec{}, fmt.Errorf("invalid launch settings: %w", err)
	}

	return spec, nil
}

// Render produces the Dockerfile. The manifest is copied and installed
// before the source tree so dependency layers cache independently of
// source edits, and pip keeps no local cache in the image.
func (s Spec) Render() (string, error) {
	entry, err := s.Launch.CommandTemplate()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s\n\n", s.BaseImage)
	b.WriteString("ENV PYTHONUNBUFFERED=1\n\n")
	fmt.Fprintf(&b, "WORKDIR %s\n\n", s.WorkDir)
	fmt.Fprintf(&b, "COPY %s ./\n", s.Manifest)
	fmt.Fprintf(&b, "RUN pip install --no-cache-dir -r %s\n\n", s.Manifest)
	b.WriteString("COPY . ./\n\n")
	fmt.Fprintf(&b, "CMD %s\n", entry)

	rendered := b.String()
	if err := Validate(rendered, s.Manifest); err != nil {
		return "", err
	}
	return rendered, nil
}

// instruction is one parsed Dockerfile step.
type instruction struct {
	cmd  string
	args []string
	raw  string
}

// Validate parses a Dockerfile and checks the contract the deploy target
// depends on: a FROM line, the manifest copied and installed before the
// full source copy, no pip cache, and a CMD entry.
func Validate(dockerfile, manifest string) error {
	instructions, err := parseInstructions(dockerfile)
	if err != nil {
		return fmt.Errorf("dockerfile does not parse: %w", err)
	}
	if len(instructions) == 0 {
		return errors.New("dockerfile is empty")
	}
	if instructions[0].cmd != "from" {
		return fmt.Errorf("first instruction must be FROM, got %s", strings.ToUpper(instructions[0].cmd))
	}

	manifestCopy, install, sourceCopy, entry := -1, -1, -1, -1
	for i, in := range instructions {
		switch in.cmd {
		case "copy":
			if copiesManifestOnly(in.args, manifest) {
				if manifestCopy == -1 {
					manifestCopy = i
				}
			} else if copiesSourceTree(in.args) {
				sourceCopy = i
			}
		case "run":
			if strings.Contains(in.raw, "pip install") {
				if !strings.Contains(in.raw, "--no-cache-dir") {
					return errors.New("pip install must use --no-cache-dir")
				}
				install = i
			}
		case "cmd":
			entry = i
		}
	}

	switch {
	case manifestCopy == -1:
		return fmt.Errorf("missing COPY of the dependency manifest %s", manifest)
	case install == -1:
		return errors.New("missing dependency install step")
	case sourceCopy == -1:
		return errors.New("missing COPY of the source tree")
	case entry == -1:
		return errors.New("missing CMD entry command")
	}

	// Ordering invariant: manifest layers before the source snapshot, so a
	// source-only change reuses the cached install layer.
	if !(manifestCopy < install && install < sourceCopy) {
		return errors.New("dependency manifest must be copied and installed before the source tree")
	}

	return nil
}

func copiesManifestOnly(args []string, manifest string) bool {
	return len(args) >= 2 && args[0] == manifest
}

func copiesSourceTree(args []string) bool {
	return len(args) >= 2 && (args[0] == "." || args[0] == "./")
}

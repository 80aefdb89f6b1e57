// Package config loads the gantry.toml project file: one service, its
// image recipe, its launch shape, and its deployment placement.
package config

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/gantryhq/gantry/internal/deploy"
	"github.com/gantryhq/gantry/internal/filesystems"
	"github.com/gantryhq/gantry/internal/imagespec"
	"github.com/gantryhq/gantry/internal/launcher"
	"github.com/gantryhq/gantry/internal/secrets"
)

// DefaultFileName is the project file gantry looks for at the source root.
const DefaultFileName = "gantry.toml"

type Project struct {
	Service ServiceSection `toml:"service"`
	Image   ImageSection   `toml:"image"`
	Launch  LaunchSection  `toml:"launch"`
	Deploy  DeploySection  `toml:"deploy"`
}

type ServiceSection struct {
	Name    string `toml:"name"`
	Region  string `toml:"region"`
	Project string `toml:"project"`
}

type ImageSection struct {
	Base     string `toml:"base"`
	Manifest string `toml:"manifest"`
}

type LaunchSection struct {
	Workers int `toml:"workers"`
	Threads int `toml:"threads"`

	// Timeout is deliberately a pointer: writing `timeout = 0` to disable
	// the request timeout must be an explicit choice, not an omission.
	Timeout *int `toml:"timeout"`

	App       string `toml:"app"`
	LocalPort int    `toml:"local_port"`
}

type DeploySection struct {
	Network string            `toml:"network"`
	Subnet  string            `toml:"subnet"`
	Public  bool              `toml:"public"`
	Secrets map[string]string `toml:"secrets"`
}

// Load reads and validates the project file.
func Load(filesystem filesystems.FileSystem, path string) (*Project, error) {
	content, err := filesystem.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file %s: %w", path, err)
	}

	var project Project
	if _, err := toml.Decode(string(content), &project); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	project.applyDefaults()
	if err := project.validate(); err != nil {
		return nil, fmt.Errorf("invalid project file %s: %w", path, err)
	}

	return &project, nil
}

func (p *Project) applyDefaults() {
	if p.Launch.Workers == 0 {
		p.Launch.Workers = 1
	}
	if p.Launch.Threads == 0 {
		p.Launch.Threads = 8
	}
	if p.Launch.App == "" {
		p.Launch.App = "app:app"
	}
}

func (p *Project) validate() error {
	if p.Service.Name == "" {
		return fmt.Errorf("[service] name is required")
	}
	if p.Service.Region == "" {
		return fmt.Errorf("[service] region is required")
	}
	if p.Service.Project == "" {
		return fmt.Errorf("[service] project is required")
	}
	if p.Launch.Timeout == nil {
		return fmt.Errorf("[launch] timeout is required; set 0 explicitly to disable the request timeout")
	}
	if _, err := launcher.ParseTimeout(*p.Launch.Timeout); err != nil {
		return fmt.Errorf("[launch] %w", err)
	}
	return nil
}

// LaunchSettings converts the [launch] section into a validated record.
func (p *Project) LaunchSettings() (launcher.Settings, error) {
	timeout, err := launcher.ParseTimeout(*p.Launch.Timeout)
	if err != nil {
		return launcher.Settings{}, err
	}

	settings := launcher.DefaultSettings(timeout)
	settings.Workers = p.Launch.Workers
	settings.Threads = p.Launch.Threads
	settings.App = p.Launch.App
	settings.LocalPort = p.Launch.LocalPort
	return settings, nil
}

// ImageSpec converts [image] + [launch] into the build recipe.
func (p *Project) ImageSpec() (imagespec.Spec, error) {
	launch, err := p.LaunchSettings()
	if err != nil {
		return imagespec.Spec{}, err
	}
	return imagespec.New(p.Image.Base, p.Image.Manifest, launch)
}

// Descriptor converts [service] + [deploy] into a deployment descriptor
// with sourceDir as the build context.
func (p *Project) Descriptor(sourceDir string) (deploy.Descriptor, error) {
	d := deploy.Descriptor{
		Service:   p.Service.Name,
		Region:    p.Service.Region,
		Project:   p.Service.Project,
		SourceDir: sourceDir,
		Network:   p.Deploy.Network,
		Subnet:    p.Deploy.Subnet,
		Public:    p.Deploy.Public,
	}

	envNames := make([]string, 0, len(p.Deploy.Secrets))
	for envName := range p.Deploy.Secrets {
		envNames = append(envNames, envName)
	}
	sort.Strings(envNames)

	for _, envName := range envNames {
		ref, err := secrets.ParseRef(p.Deploy.Secrets[envName])
		if err != nil {
			return deploy.Descriptor{}, fmt.Errorf("[deploy.secrets] %s: %w", envName, err)
		}
		d.Secrets = append(d.Secrets, deploy.SecretBinding{EnvVar: envName, Ref: ref})
	}

	if err := d.Validate(); err != nil {
		return deploy.Descriptor{}, err
	}
	return d, nil
}

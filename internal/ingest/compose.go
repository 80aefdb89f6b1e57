package ingest

import (
	"context"
	"strconv"

	"github.com/compose-spec/compose-go/v2/loader"
	composetypes "github.com/compose-spec/compose-go/v2/types"

	"github.com/gantryhq/gantry/internal/filesystems"
)

var composeFileNames = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// ComposeSource reads env vars, ports, and a pre-built image name from a
// Docker Compose file at the tree root. Compose files describe how the
// service actually runs in development, so they rank above dotenv.
type ComposeSource struct{}

func NewComposeSource() *ComposeSource {
	return &ComposeSource{}
}

func (c *ComposeSource) Name() string {
	return "docker-compose"
}

func (c *ComposeSource) Confidence() int {
	return 90
}

func (c *ComposeSource) Ingest(ctx context.Context, filesystem filesystems.FileSystem, root string) (*Finding, error) {
	path, err := filesystems.FindFirst(filesystem, root, composeFileNames...)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}

	content, err := filesystem.ReadFile(path)
	if err != nil {
		return nil, err
	}

	project, err := loader.LoadWithContext(ctx, composetypes.ConfigDetails{
		WorkingDir: root,
		ConfigFiles: []composetypes.ConfigFile{
			{Filename: path, Content: content},
		},
		Environment: composetypes.Mapping{},
	}, func(options *loader.Options) {
		// The tree root may not be a valid compose project name ("." is
		// common), so pin one.
		options.SetProjectName("gantry", true)
		options.SkipValidation = true
		options.SkipConsistencyCheck = true
		options.ResolvePaths = false
	})
	if err != nil {
		return nil, err
	}

	finding := &Finding{
		Source:     c.Name(),
		Confidence: c.Confidence(),
		Env:        make(map[string]string),
	}

	// Single-service trees are the common case; with several services,
	// take env and ports from all of them and let confidence sort out
	// collisions downstream.
	for _, service := range project.Services {
		if finding.Image == "" && service.Build == nil {
			finding.Image = service.Image
		}
		for key, value := range service.Environment {
			if value != nil {
				finding.Env[key] = *value
			}
		}
		for _, port := range service.Ports {
			target := int(port.Target)
			if target == 0 && port.Published != "" {
				if published, err := strconv.Atoi(port.Published); err == nil {
					target = published
				}
			}
			if target > 0 {
				finding.Ports = append(finding.Ports, target)
			}
		}
	}

	if finding.Image == "" && len(finding.Env) == 0 && len(finding.Ports) == 0 {
		return nil, nil
	}
	return finding, nil
}

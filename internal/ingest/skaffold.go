package ingest

import (
	"context"
	"strings"

	"github.com/GoogleContainerTools/skaffold/pkg/skaffold/schema/latest"
	"gopkg.in/yaml.v3"

	"github.com/gantryhq/gantry/internal/filesystems"
)

// SkaffoldSource reads the image name out of a skaffold.yaml build config.
// Skaffold configs are explicit deployment specs, so they rank highest.
type SkaffoldSource struct{}

func NewSkaffoldSource() *SkaffoldSource {
	return &SkaffoldSource{}
}

func (s *SkaffoldSource) Name() string {
	return "skaffold"
}

func (s *SkaffoldSource) Confidence() int {
	return 95
}

func (s *SkaffoldSource) Ingest(ctx context.Context, filesystem filesystems.FileSystem, root string) (*Finding, error) {
	path, err := filesystems.FindFile(filesystem, root, "skaffold.yaml")
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

	var config latest.SkaffoldConfig
	if err := yaml.Unmarshal(content, &config); err != nil {
		return nil, err
	}

	for _, artifact := range config.Build.Artifacts {
		if artifact == nil || artifact.ImageName == "" {
			continue
		}
		return &Finding{
			Source:     s.Name(),
			Confidence: s.Confidence(),
			Image:      strings.TrimSpace(artifact.ImageName),
		}, nil
	}

	return nil, nil
}

// Package ingest seeds deployment inputs from configuration already in
// the source tree: dotenv files, Docker Compose services, and skaffold
// build configs. Each source reports findings with a confidence used to
// settle conflicts, higher wins per key.
package ingest

import (
	"context"
	"fmt"
	"sort"

	"github.com/gantryhq/gantry/internal/filesystems"
)

// Finding is what one source learned about the service at the tree root.
type Finding struct {
	Source     string
	Confidence int

	// Image is a pre-built image name, when the source declares one.
	Image string

	// Env holds plain environment variables the application expects.
	Env map[string]string

	// Ports are container ports the source exposes.
	Ports []int
}

// Source inspects the source tree for one kind of configuration. A source
// that finds nothing returns nil, nil.
type Source interface {
	Name() string
	Confidence() int
	Ingest(ctx context.Context, filesystem filesystems.FileSystem, root string) (*Finding, error)
}

// Result merges all findings for one tree.
type Result struct {
	Image   string
	Env     map[string]string
	Ports   []int
	Sources []string
}

// Scanner runs a fixed set of sources over a tree root.
type Scanner struct {
	sources []Source
}

func NewScanner(sources ...Source) *Scanner {
	if len(sources) == 0 {
		sources = DefaultSources()
	}
	return &Scanner{sources: sources}
}

func DefaultSources() []Source {
	return []Source{
		NewComposeSource(),
		NewSkaffoldSource(),
		NewDotEnvSource(),
	}
}

// Scan runs every source and merges the findings. A source error aborts
// the scan; partially ingested state is never returned.
func (s *Scanner) Scan(ctx context.Context, filesystem filesystems.FileSystem, root string) (*Result, error) {
	result := &Result{Env: make(map[string]string)}

	envConfidence := make(map[string]int)
	imageConfidence := 0
	portSet := make(map[int]bool)

	for _, source := range s.sources {
		finding, err := source.Ingest(ctx, filesystem, root)
		if err != nil {
			return nil, fmt.Errorf("%s ingestion failed: %w", source.Name(), err)
		}
		if finding == nil {
			continue
		}

		result.Sources = append(result.Sources, source.Name())

		for key, value := range finding.Env {
			if finding.Confidence > envConfidence[key] {
				result.Env[key] = value
				envConfidence[key] = finding.Confidence
			}
		}

		if finding.Image != "" && finding.Confidence > imageConfidence {
			result.Image = finding.Image
			imageConfidence = finding.Confidence
		}

		for _, port := range finding.Ports {
			portSet[port] = true
		}
	}

	for port := range portSet {
		result.Ports = append(result.Ports, port)
	}
	sort.Ints(result.Ports)

	return result, nil
}

package ingest

import (
	"context"

	"github.com/joho/godotenv"

	"github.com/gantryhq/gantry/internal/filesystems"
)

// DotEnvSource reads a .env file at the tree root. Applications in this
// shape conventionally load one at startup, so it is a reliable record of
// the variables they expect.
type DotEnvSource struct{}

func NewDotEnvSource() *DotEnvSource {
	return &DotEnvSource{}
}

func (d *DotEnvSource) Name() string {
	return "dotenv"
}

func (d *DotEnvSource) Confidence() int {
	return 85
}

func (d *DotEnvSource) Ingest(ctx context.Context, filesystem filesystems.FileSystem, root string) (*Finding, error) {
	path, err := filesystems.FindFile(filesystem, root, ".env")
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

	env, err := godotenv.Unmarshal(string(content))
	if err != nil {
		return nil, err
	}
	if len(env) == 0 {
		return nil, nil
	}

	return &Finding{
		Source:     d.Name(),
		Confidence: d.Confidence(),
		Env:        env,
	}, nil
}

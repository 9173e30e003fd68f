package csvstore

import (
	"context"

	"github.com/couchcryptid/mdf-dashboard/internal/domain"
)

// RawSource reads the raw exports matching a glob pattern.
// It implements pipeline.RecordSource.
type RawSource struct {
	Pattern string
}

func (s RawSource) Read(ctx context.Context) (domain.RawTable, error) {
	paths, err := ExpandGlob(s.Pattern)
	if err != nil {
		return domain.RawTable{}, err
	}
	return ReadRawFiles(ctx, paths)
}

// TableSink writes the consolidated table to a file.
// It implements pipeline.RecordSink.
type TableSink struct {
	Path string
}

func (s TableSink) Name() string {
	return "csv:" + s.Path
}

func (s TableSink) Write(ctx context.Context, table domain.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteTable(s.Path, table)
}

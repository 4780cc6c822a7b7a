package session

import (
	"context"
	"io"

	"ytdl-remote/internal/filestore"
)

// FileSource streams the file behind a completed job's handle.
type FileSource interface {
	Retrieve(ctx context.Context, handle string, w io.Writer) (int64, error)
}

// DirRetriever saves retrieved files into Dir without overwriting anything already there.
type DirRetriever struct {
	Source FileSource
	Dir    string
}

func (r DirRetriever) Retrieve(ctx context.Context, handle, name string) (string, error) {
	return filestore.Save(r.Dir, name, func(w io.Writer) (int64, error) {
		return r.Source.Retrieve(ctx, handle, w)
	})
}

package artifact

import (
	"context"
	"io"
)

// Store is the storage capability used for ad artifacts and registry sync.
// Each backend implements it once; callers only depend on this interface.
type Store interface {
	Mkdir(ctx context.Context, path string) error
	OpenRead(ctx context.Context, path string) (io.ReadCloser, error)
	// OpenWrite returns a handle whose Close commits the content. Callers must always close it.
	OpenWrite(ctx context.Context, path string) (io.WriteCloser, error)
	PutFile(ctx context.Context, localPath, remotePath string) error
	Download(ctx context.Context, remotePath, localPath string) error
}

// WriteFile writes data to path through store, always closing the handle.
func WriteFile(ctx context.Context, store Store, path string, data []byte) (err error) {
	w, err := store.OpenWrite(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = w.Write(data)
	return err
}

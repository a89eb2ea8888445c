package artifact

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// LocalStore keeps artifacts on a filesystem rooted at a base directory.
type LocalStore struct {
	fs  afero.Fs
	log *slog.Logger
}

func NewLocalStore(root string, log *slog.Logger) *LocalStore {
	log.Info("using local artifact store.", slog.String("root", root))
	return NewLocalStoreFs(afero.NewBasePathFs(afero.NewOsFs(), root), log)
}

// NewLocalStoreFs wraps an existing afero filesystem.
func NewLocalStoreFs(fs afero.Fs, log *slog.Logger) *LocalStore {
	return &LocalStore{fs: fs, log: log}
}

func (s *LocalStore) Mkdir(_ context.Context, path string) error {
	return s.fs.MkdirAll(path, 0o755)
}

func (s *LocalStore) OpenRead(_ context.Context, path string) (io.ReadCloser, error) {
	return s.fs.Open(path)
}

func (s *LocalStore) OpenWrite(_ context.Context, path string) (io.WriteCloser, error) {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return s.fs.Create(path)
}

func (s *LocalStore) PutFile(ctx context.Context, localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := s.OpenWrite(ctx, remotePath)
	if err != nil {
		return err
	}
	if _, err = io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	s.log.Debug("file stored.", slog.String("path", remotePath))

	return dst.Close()
}

func (s *LocalStore) Download(ctx context.Context, remotePath, localPath string) error {
	src, err := s.OpenRead(ctx, remotePath)
	if err != nil {
		return err
	}
	defer src.Close()

	return copyToLocal(src, localPath)
}

func copyToLocal(src io.Reader, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err = io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

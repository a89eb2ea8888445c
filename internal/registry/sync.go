package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IliaW/listing-alert-worker/internal/artifact"
)

// Pull downloads a registry from the artifact store over the local copy.
func Pull(ctx context.Context, store artifact.Store, remotePath, localPath string, log *slog.Logger) error {
	log.Info("pulling registry from remote storage.", slog.String("remote", remotePath),
		slog.String("local", localPath))
	if err := store.Download(ctx, remotePath, localPath); err != nil {
		return fmt.Errorf("pull registry %s: %w", remotePath, err)
	}
	return nil
}

// Push uploads the local registry file to the artifact store.
func Push(ctx context.Context, store artifact.Store, localPath, remotePath string, log *slog.Logger) error {
	log.Info("pushing registry to remote storage.", slog.String("local", localPath),
		slog.String("remote", remotePath))
	if err := store.PutFile(ctx, localPath, remotePath); err != nil {
		return fmt.Errorf("push registry %s: %w", localPath, err)
	}
	return nil
}

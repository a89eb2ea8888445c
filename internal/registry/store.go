package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/IliaW/listing-alert-worker/internal/model"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Load reads the registry stored at path. A missing or empty file is an empty registry.
// Malformed content is recovered with Salvage; corruption is never returned as an error,
// only I/O failures are.
func Load(path string, log *slog.Logger) (model.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info("registry file does not exist. Starting empty.", slog.String("path", path))
			return model.Registry{}, nil
		}
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	if len(data) == 0 {
		return model.Registry{}, nil
	}

	var reg model.Registry
	if err = json.Unmarshal(data, &reg); err == nil {
		return normalize(reg), nil
	}
	log.Warn("registry file is corrupted. Trying to salvage.", slog.String("path", path),
		slog.String("err", err.Error()))

	reg, n, ok := Salvage[model.Registry](data)
	if !ok {
		log.Error("registry could not be salvaged. Starting empty.", slog.String("path", path))
		return model.Registry{}, nil
	}
	log.Warn("registry salvaged. Some entries may be lost.", slog.String("path", path),
		slog.Int("kept_bytes", n), slog.Int("total_bytes", len(data)), slog.Int("ads", len(reg)))

	return normalize(reg), nil
}

// Save writes the whole registry to path, replacing the previous content. The document is
// written to a sibling temp file first and renamed over path.
func Save(path string, reg model.Registry) error {
	data, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create registry dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write registry %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace registry %s: %w", path, err)
	}

	return nil
}

// normalize drops null entries and fills missing ids from the keys.
func normalize(reg model.Registry) model.Registry {
	if reg == nil {
		return model.Registry{}
	}
	for id, ad := range reg {
		if ad == nil {
			delete(reg, id)
			continue
		}
		if ad.ID == "" {
			ad.ID = id
		}
	}
	return reg
}

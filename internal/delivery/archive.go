package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/IliaW/listing-alert-worker/internal/artifact"
	"github.com/IliaW/listing-alert-worker/internal/model"
)

// Archive stores every image of ad under destination/<ad id>/. Failures are logged per image
// and never stop the remaining images. It returns the number of images stored.
func (p *Pipeline) Archive(ctx context.Context, ad *model.Ad) int {
	if p.store == nil {
		return 0
	}
	log := p.log.With(slog.String("id", ad.ID))

	images := ad.ImageURLs
	if details, err := p.inspector.Inspect(ctx, ad); err != nil {
		log.Warn("failed to inspect ad for archival. Using listing images.", slog.String("err", err.Error()))
	} else if len(details.ImageURLs) > 0 {
		images = details.ImageURLs
	}
	if len(images) == 0 {
		return 0
	}

	dir := path.Join(p.destination, ad.ID)
	if err := p.store.Mkdir(ctx, dir); err != nil {
		log.Error("failed to create artifact folder.", slog.String("dir", dir), slog.String("err", err.Error()))
		return 0
	}

	stored := 0
	for i, img := range images {
		dest := path.Join(dir, imageName(img, i)+".jpg")
		log.Debug(fmt.Sprintf("saving image %d/%d.", i+1, len(images)), slog.String("dest", dest))
		if err := p.archiveImage(ctx, img, dest); err != nil {
			log.Error("failed to archive image.", slog.String("image", img), slog.String("err", err.Error()))
			continue
		}
		stored++
	}
	log.Info("ad artifacts archived.", slog.Int("stored", stored), slog.Int("images", len(images)))

	return stored
}

func (p *Pipeline) archiveImage(ctx context.Context, img, dest string) error {
	body, err := p.images.Fetch(ctx, img)
	if err != nil {
		return err
	}
	return artifact.WriteFile(ctx, p.store, dest, body)
}

// imageName is prefixed with the position, the site reuses file names across image folders.
func imageName(img string, i int) string {
	name := ""
	if u, err := url.Parse(img); err == nil {
		name = path.Base(u.Path)
	}
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "" || name == "." || name == "/" {
		name = "image"
	}
	return fmt.Sprintf("%02d_%s", i+1, name)
}

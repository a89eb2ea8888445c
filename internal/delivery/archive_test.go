package delivery

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/IliaW/listing-alert-worker/internal/artifact"
	"github.com/IliaW/listing-alert-worker/internal/classifier"
	"github.com/IliaW/listing-alert-worker/internal/fetcher"
	"github.com/IliaW/listing-alert-worker/internal/model"
	"github.com/spf13/afero"
)

func TestArchiveIsolatesImageFailures(t *testing.T) {
	ins := &fakeInspector{details: map[string]*classifier.Details{
		"7": {ImageURLs: []string{
			"https://img.example.com/a/photo.JPG?rule=big",
			"https://img.example.com/broken.jpg",
			"https://img.example.com/b/photo.jpg",
		}},
	}}
	images := fetcher.Func(func(_ context.Context, url string) ([]byte, error) {
		if url == "https://img.example.com/broken.jpg" {
			return nil, errors.New("timeout")
		}
		return []byte("jpeg:" + url), nil
	})
	fs := afero.NewMemMapFs()
	store := artifact.NewLocalStoreFs(fs, testLog)

	p := newPipeline(ins, &fakeNotifier{}, model.Registry{})
	p.EnableArchive(store, images, "/Data/ads")

	if got := p.Archive(context.Background(), &model.Ad{ID: "7"}); got != 2 {
		t.Fatalf("expected 2 stored images, got %d", got)
	}
	for path, want := range map[string]string{
		"/Data/ads/7/01_photo.jpg": "jpeg:https://img.example.com/a/photo.JPG?rule=big",
		"/Data/ads/7/03_photo.jpg": "jpeg:https://img.example.com/b/photo.jpg",
	} {
		f, err := store.OpenRead(context.Background(), path)
		if err != nil {
			t.Fatalf("missing %s: %v", path, err)
		}
		body, _ := io.ReadAll(f)
		f.Close()
		if string(body) != want {
			t.Fatalf("unexpected content of %s: %q", path, body)
		}
	}
	if ok, _ := afero.Exists(fs, "/Data/ads/7/02_broken.jpg"); ok {
		t.Fatalf("failed image must not be written")
	}
}

func TestArchiveDisabled(t *testing.T) {
	p := newPipeline(&fakeInspector{}, &fakeNotifier{}, model.Registry{})
	if got := p.Archive(context.Background(), &model.Ad{ID: "1", ImageURLs: []string{"https://i/1"}}); got != 0 {
		t.Fatalf("archive without store stored %d images", got)
	}
}

func TestArchiveUsesListingImagesOnInspectFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newPipeline(&fakeInspector{err: errors.New("gone")}, &fakeNotifier{}, model.Registry{})
	p.EnableArchive(artifact.NewLocalStoreFs(fs, testLog), fetcher.Func(func(context.Context, string) ([]byte, error) {
		return []byte("x"), nil
	}), "out")

	if got := p.Archive(context.Background(), &model.Ad{ID: "3", ImageURLs: []string{"https://i/thumb"}}); got != 1 {
		t.Fatalf("expected listing image to be archived, got %d", got)
	}
	if ok, _ := afero.Exists(fs, "out/3/01_thumb.jpg"); !ok {
		t.Fatalf("archived image not found")
	}
}

func TestImageName(t *testing.T) {
	tests := []struct {
		url  string
		i    int
		want string
	}{
		{"https://i.example.com/x/$_59.JPG?set_id=1", 0, "01_$_59"},
		{"https://i.example.com/", 1, "02_image"},
		{"::bad", 9, "10_image"},
	}
	for _, tt := range tests {
		if got := imageName(tt.url, tt.i); got != tt.want {
			t.Fatalf("imageName(%q, %d) = %q, want %q", tt.url, tt.i, got, tt.want)
		}
	}
}

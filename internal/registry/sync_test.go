package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/IliaW/listing-alert-worker/internal/artifact"
	"github.com/IliaW/listing-alert-worker/internal/model"
)

func TestPushPull(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := artifact.NewLocalStore(filepath.Join(dir, "remote"), testLog)

	local := filepath.Join(dir, "sent_ads.json")
	if err := Save(local, model.Registry{"42": {ID: "42", Title: "Desk"}}); err != nil {
		t.Fatal(err)
	}
	if err := Push(ctx, store, local, "/Data/ads_jsons/sent_ads.json", testLog); err != nil {
		t.Fatalf("Push error: %v", err)
	}
	if err := os.Remove(local); err != nil {
		t.Fatal(err)
	}

	if err := Pull(ctx, store, "/Data/ads_jsons/sent_ads.json", local, testLog); err != nil {
		t.Fatalf("Pull error: %v", err)
	}
	reg, err := Load(local, testLog)
	if err != nil {
		t.Fatal(err)
	}
	if reg["42"] == nil || reg["42"].Title != "Desk" {
		t.Fatalf("unexpected registry after pull: %+v", reg)
	}

	if err = Pull(ctx, store, "/Data/ads_jsons/nothing.json", local, testLog); err == nil {
		t.Fatalf("expected error for missing remote registry")
	}
}

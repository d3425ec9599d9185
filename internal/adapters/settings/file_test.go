package settings

import (
	"os"
	"path/filepath"
	"testing"

	"yt-niche-finder/internal/domain"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "yt_settings.json"))
	got, err := store.Load()
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got.APIKey != "" || got.SubLimit != 3000 {
		t.Fatalf("ожидали настройки по умолчанию, получили %+v", got)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yt_settings.json")
	store := NewFileStore(path)
	want := domain.Settings{APIKey: "key-123", SubLimit: 5000}
	if err := store.Save(want); err != nil {
		t.Fatalf("не ожидали ошибку сохранения: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("не ожидали ошибку загрузки: %v", err)
	}
	if got != want {
		t.Fatalf("ожидали %+v, получили %+v", want, got)
	}
}

func TestLoadCorruptFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yt_settings.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(path)
	got, err := store.Load()
	if err == nil {
		t.Fatal("ожидали ошибку разбора")
	}
	if got.SubLimit != 3000 {
		t.Fatalf("ожидали дефолтный лимит при ошибке, получили %d", got.SubLimit)
	}
}

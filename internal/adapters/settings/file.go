package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"yt-niche-finder/internal/domain"
)

const defaultSubLimit = 3000

// FileStore хранит настройки в JSON-файле.
type FileStore struct {
	path string
}

var _ domain.SettingsStore = (*FileStore)(nil)

// NewFileStore создаёт хранилище по указанному пути.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load читает настройки. Отсутствующий файл даёт значения по умолчанию.
func (s *FileStore) Load() (domain.Settings, error) {
	defaults := domain.Settings{SubLimit: defaultSubLimit}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaults, nil
		}
		return defaults, fmt.Errorf("чтение настроек: %w", err)
	}
	var loaded domain.Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		return defaults, fmt.Errorf("разбор настроек: %w", err)
	}
	if loaded.SubLimit == 0 {
		loaded.SubLimit = defaultSubLimit
	}
	return loaded, nil
}

// Save перезаписывает файл настроек.
func (s *FileStore) Save(settings domain.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("сериализация настроек: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("запись настроек: %w", err)
	}
	return nil
}

package asset

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/observability/log"
)

// registryFile is the on-disk list of file assets and their handles, so
// that handles stay stable across runs.
type registryFile struct {
	Assets []registryRecord `yaml:"assets"`
}

type registryRecord struct {
	Handle string `yaml:"handle"`
	Path   string `yaml:"path"`
	Kind   string `yaml:"kind,omitempty"`
}

func (m *Manager) registryPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.root, path)
}

// LoadRegistry reads a registry file (relative paths are taken from the
// asset root) and registers its entries. A missing file is not an error.
// Bad records are skipped with a warning.
func (m *Manager) LoadRegistry(path string) error {
	data, err := os.ReadFile(m.registryPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "reading asset registry")
	}
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return errors.Wrap(err, "parsing asset registry")
	}
	for _, rec := range file.Assets {
		h, err := models.ParseAssetHandle(rec.Handle)
		if err != nil {
			m.logger.Warn("registry record has a bad handle",
				log.String("path", rec.Path),
				log.String("handle", rec.Handle))
			continue
		}
		if err := m.RegisterWithHandle(h, rec.Path, models.ParseAssetKind(rec.Kind)); err != nil {
			m.logger.Warn("registry record skipped",
				log.String("path", rec.Path),
				log.Error(err))
		}
	}
	return nil
}

// SaveRegistry writes every file asset to a registry file.
func (m *Manager) SaveRegistry(path string) error {
	var file registryFile
	for _, meta := range m.List() {
		if meta.Virtual {
			continue
		}
		file.Assets = append(file.Assets, registryRecord{
			Handle: meta.Handle.String(),
			Path:   meta.Path,
			Kind:   meta.Kind.String(),
		})
	}
	data, err := yaml.Marshal(&file)
	if err != nil {
		return errors.Wrap(err, "encoding asset registry")
	}
	full := m.registryPath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errors.Wrap(err, "creating registry directory")
	}
	return errors.Wrap(os.WriteFile(full, data, 0o644), "writing asset registry")
}

// Scan registers every file below the root whose kind is known.
func (m *Manager) Scan() (int, error) {
	added := 0
	err := filepath.WalkDir(m.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || KindFromPath(path) == models.AssetKindUnknown {
			return nil
		}
		if _, known := m.Lookup(path); known {
			return nil
		}
		if _, err := m.Register(path); err != nil {
			return err
		}
		added++
		return nil
	})
	return added, errors.Wrap(err, "scanning asset root")
}

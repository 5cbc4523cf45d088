// Package filestore persiste en disco los XML de cada etapa y el secuencial
// de facturación de un único proceso emisor.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jhoicas/facturador-sri/internal/domain"
	"github.com/jhoicas/facturador-sri/internal/domain/repository"
	domainsri "github.com/jhoicas/facturador-sri/internal/domain/sri"
)

// ArtifactStore guarda <base>/xml_<kind>/<claveAcceso>.xml.
type ArtifactStore struct {
	base string
}

// NewArtifactStore crea las cuatro carpetas si no existen.
func NewArtifactStore(base string) (*ArtifactStore, error) {
	s := &ArtifactStore{base: base}
	for _, k := range repository.ArtifactKinds {
		if err := os.MkdirAll(s.dir(k), 0o755); err != nil {
			return nil, fmt.Errorf("filestore: crear carpeta %s: %w", k, err)
		}
	}
	return s, nil
}

func (s *ArtifactStore) dir(kind repository.ArtifactKind) string {
	return filepath.Join(s.base, "xml_"+string(kind))
}

// Path ruta del artefacto (aunque no exista).
func (s *ArtifactStore) Path(kind repository.ArtifactKind, accessKey string) string {
	return filepath.Join(s.dir(kind), accessKey+".xml")
}

// Save escribe el artefacto de forma atómica (archivo temporal + rename).
func (s *ArtifactStore) Save(_ context.Context, kind repository.ArtifactKind, accessKey string, data []byte) error {
	if err := checkKey(accessKey); err != nil {
		return err
	}
	return writeFileAtomic(s.Path(kind, accessKey), data)
}

// Load lee el artefacto; domain.ErrNotFound si no existe.
func (s *ArtifactStore) Load(_ context.Context, kind repository.ArtifactKind, accessKey string) ([]byte, error) {
	if err := checkKey(accessKey); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(kind, accessKey))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrNotFound, kind, accessKey)
	}
	return data, err
}

// Exists indica si el artefacto está guardado.
func (s *ArtifactStore) Exists(_ context.Context, kind repository.ArtifactKind, accessKey string) (bool, error) {
	if err := checkKey(accessKey); err != nil {
		return false, err
	}
	_, err := os.Stat(s.Path(kind, accessKey))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// la clave se usa como nombre de archivo: solo se aceptan 49 dígitos
func checkKey(accessKey string) error {
	if len(accessKey) != domainsri.AccessKeyLength {
		return domain.NewValidationError("claveAcceso", "longitud %d inválida", len(accessKey))
	}
	for i := 0; i < len(accessKey); i++ {
		if accessKey[i] < '0' || accessKey[i] > '9' {
			return domain.NewValidationError("claveAcceso", "contiene caracteres no numéricos")
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("filestore: crear temporal: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: escribir: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("filestore: rename: %w", err)
	}
	return nil
}

var _ repository.ArtifactStore = (*ArtifactStore)(nil)

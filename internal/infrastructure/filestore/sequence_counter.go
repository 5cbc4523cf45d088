package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jhoicas/facturador-sri/internal/domain/repository"
)

// sequenceFile formato persistido por serie: {"ultimo_secuencial": 41}.
type sequenceFile struct {
	Last int64 `json:"ultimo_secuencial"`
}

// SequenceCounter secuencial en archivo JSON por serie, serializado con un mutex.
// Válido para un solo proceso emisor; con varias instancias usar postgres.SequenceCounter.
type SequenceCounter struct {
	mu    sync.Mutex
	dir   string
	start int64
}

// NewSequenceCounter usa dir para los archivos secuencial_<serie>.json.
// start es el último número ya usado cuando el archivo aún no existe.
func NewSequenceCounter(dir string, start int64) (*SequenceCounter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: crear carpeta de secuenciales: %w", err)
	}
	return &SequenceCounter{dir: dir, start: start}, nil
}

func (c *SequenceCounter) path(series string) string {
	return filepath.Join(c.dir, "secuencial_"+series+".json")
}

// Next incrementa y persiste antes de devolver el número.
func (c *SequenceCounter) Next(ctx context.Context, series string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	last, err := c.read(series)
	if err != nil {
		return 0, err
	}
	next := last + 1
	data, _ := json.Marshal(sequenceFile{Last: next})
	if err := writeFileAtomic(c.path(series), data); err != nil {
		return 0, err
	}
	return next, nil
}

// Current último número entregado.
func (c *SequenceCounter) Current(_ context.Context, series string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read(series)
}

func (c *SequenceCounter) read(series string) (int64, error) {
	data, err := os.ReadFile(c.path(series))
	if errors.Is(err, os.ErrNotExist) {
		return c.start, nil
	}
	if err != nil {
		return 0, fmt.Errorf("filestore: leer secuencial: %w", err)
	}
	var f sequenceFile
	if err := json.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("filestore: secuencial corrupto en %s: %w", c.path(series), err)
	}
	return f.Last, nil
}

var _ repository.SequenceCounter = (*SequenceCounter)(nil)

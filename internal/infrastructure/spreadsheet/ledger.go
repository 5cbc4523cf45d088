// Package spreadsheet mantiene el libro de emisiones (.xlsx): una fila por
// factura emitida con su estado ante el SRI.
package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	"github.com/xuri/excelize/v2"
)

// SheetName hoja donde se registran las emisiones.
const SheetName = "Ventas"

var header = []any{
	"Fecha", "Número", "Clave de acceso", "Cliente", "Identificación",
	"Subtotal", "Descuento", "IVA", "Total", "Estado", "Autorización", "Fecha autorización",
}

// Ledger libro de emisiones. Seguro para uso concurrente dentro de un proceso.
type Ledger struct {
	path string
	mu   sync.Mutex
}

// NewLedger crea el libro si no existe.
func NewLedger(path string) (*Ledger, error) {
	l := &Ledger{path: path}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("spreadsheet: crear directorio: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f := excelize.NewFile()
		defer f.Close()
		if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
			return nil, err
		}
		if err := f.SaveAs(path); err != nil {
			return nil, fmt.Errorf("spreadsheet: crear libro: %w", err)
		}
	}
	return l, nil
}

// Append agrega la fila de una emisión. Si la clave de acceso ya está
// registrada se actualiza su fila (ej. TIMED_OUT que luego se autoriza).
func (l *Ledger) Append(_ context.Context, inv *entity.Invoice) error {
	if inv == nil {
		return fmt.Errorf("spreadsheet: emisión nula")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return fmt.Errorf("spreadsheet: abrir libro: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return fmt.Errorf("spreadsheet: leer hoja %s: %w", SheetName, err)
	}
	target := len(rows) + 1
	for i, r := range rows {
		if i > 0 && len(r) > 2 && r[2] == inv.AccessKey {
			target = i + 1
			break
		}
	}

	authorizedAt := ""
	if inv.AuthorizedAt != nil {
		authorizedAt = inv.AuthorizedAt.Format("2006-01-02 15:04:05")
	}
	values := []any{
		inv.Date.Format("2006-01-02"),
		inv.Number,
		inv.AccessKey,
		inv.CustomerName,
		inv.CustomerID,
		inv.NetTotal.StringFixed(2),
		inv.DiscountTotal.StringFixed(2),
		inv.TaxTotal.StringFixed(2),
		inv.GrandTotal.StringFixed(2),
		inv.Status,
		inv.AuthorizationNumber,
		authorizedAt,
	}
	cell, err := excelize.CoordinatesToCellName(1, target)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("spreadsheet: escribir fila: %w", err)
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("spreadsheet: guardar libro: %w", err)
	}
	return nil
}

// Rows devuelve las filas de datos (sin encabezado).
func (l *Ledger) Rows() ([][]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: abrir libro: %w", err)
	}
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

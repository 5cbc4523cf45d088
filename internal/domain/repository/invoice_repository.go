package repository

import (
	"context"

	"github.com/jhoicas/facturador-sri/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia del registro de emisiones.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	// Update actualiza estado, totales, número de autorización y mensajes del SRI.
	Update(ctx context.Context, invoice *entity.Invoice) error
	GetByAccessKey(ctx context.Context, accessKey string) (*entity.Invoice, error)
	// ListByStatus devuelve emisiones en un estado (ej. TIMED_OUT para reconsulta).
	ListByStatus(ctx context.Context, status string, limit int) ([]*entity.Invoice, error)
}

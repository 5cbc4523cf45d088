package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/facturador-sri/internal/domain"
	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	"github.com/jhoicas/facturador-sri/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, access_key, establishment, emission_point, sequence, number, date, environment,
	customer_id, customer_name, net_total, discount_total, tax_total, grand_total, status,
	authorization_number, authorized_at, sri_messages, created_at, updated_at`

// Create persiste el registro de la emisión.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	query := `INSERT INTO sri_invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.AccessKey, inv.Establishment, inv.EmissionPoint, inv.Sequence, inv.Number,
		inv.Date, inv.Environment, nullIfEmpty(inv.CustomerID), inv.CustomerName,
		inv.NetTotal, inv.DiscountTotal, inv.TaxTotal, inv.GrandTotal, inv.Status,
		nullIfEmpty(inv.AuthorizationNumber), inv.AuthorizedAt, nullIfEmpty(inv.SRIMessages),
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: emisión %s ya registrada", domain.ErrDuplicate, inv.AccessKey)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// Update actualiza estado, número y fecha de autorización y mensajes del SRI.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	inv.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE sri_invoices
		SET status               = $2,
		    authorization_number = COALESCE($3, authorization_number),
		    authorized_at        = COALESCE($4, authorized_at),
		    sri_messages         = COALESCE($5, sri_messages),
		    updated_at           = $6
		WHERE access_key = $1`
	tag, err := r.q.Exec(ctx, query,
		inv.AccessKey,
		inv.Status,
		nullIfEmpty(inv.AuthorizationNumber),
		inv.AuthorizedAt,
		nullIfEmpty(inv.SRIMessages),
		inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: emisión %s", domain.ErrNotFound, inv.AccessKey)
	}
	return nil
}

// GetByAccessKey devuelve nil, nil si no existe.
func (r *InvoiceRepo) GetByAccessKey(ctx context.Context, accessKey string) (*entity.Invoice, error) {
	row := r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM sri_invoices WHERE access_key = $1`, accessKey)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// ListByStatus emisiones en un estado, las más antiguas primero.
func (r *InvoiceRepo) ListByStatus(ctx context.Context, status string, limit int) ([]*entity.Invoice, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+invoiceColumns+` FROM sri_invoices WHERE status = $1 ORDER BY created_at LIMIT $2`,
		status, limit)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func scanInvoice(row pgxScanner) (*entity.Invoice, error) {
	var inv entity.Invoice
	var customerID, authNumber, messages *string
	err := row.Scan(
		&inv.ID, &inv.AccessKey, &inv.Establishment, &inv.EmissionPoint, &inv.Sequence, &inv.Number,
		&inv.Date, &inv.Environment, &customerID, &inv.CustomerName,
		&inv.NetTotal, &inv.DiscountTotal, &inv.TaxTotal, &inv.GrandTotal, &inv.Status,
		&authNumber, &inv.AuthorizedAt, &messages, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.CustomerID = derefStr(customerID)
	inv.AuthorizationNumber = derefStr(authNumber)
	inv.SRIMessages = derefStr(messages)
	return &inv, nil
}

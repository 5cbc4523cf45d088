package billing

import (
	"time"

	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	infrasri "github.com/jhoicas/facturador-sri/internal/infrastructure/sri"
	"github.com/shopspring/decimal"
)

// EmissionRequest venta lista para emitir.
type EmissionRequest struct {
	Customer         *entity.Customer
	Items            []*entity.InvoiceDetail
	DocumentDiscount decimal.Decimal
	PaymentCode      string
	AdditionalInfo   []infrasri.AdditionalField
	IssueDate        time.Time // cero = ahora
}

// EmissionResult resultado estructurado de Emit y RecheckAuthorization.
// Stage es el último estado alcanzado antes de un fallo.
type EmissionResult struct {
	Status              string
	Stage               string
	AccessKey           string
	Number              string
	AuthorizationNumber string
	AuthorizedAt        *time.Time
	Environment         string
	Total               decimal.Decimal
	Messages            []entity.SRIMessage
	Critical            bool
	Err                 error
}

// Authorized indica si la factura quedó autorizada.
func (r *EmissionResult) Authorized() bool {
	return r != nil && r.Status == entity.EmissionStatusAuthorized
}

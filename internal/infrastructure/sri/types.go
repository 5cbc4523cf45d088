// Package sri implementa la generación del XML factura v1.1.0 y el cliente de
// los servicios web offline del SRI (Ecuador).
package sri

import (
	"time"

	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	"github.com/jhoicas/facturador-sri/pkg/sri"
	"github.com/shopspring/decimal"
)

// AdditionalField par nombre/valor de infoAdicional (ej. Vendedor, Email).
type AdditionalField struct {
	Name  string
	Value string
}

// InvoiceBuildContext contexto con todos los datos necesarios para construir el XML de la factura.
type InvoiceBuildContext struct {
	Issuer           *entity.Issuer
	Customer         *entity.Customer
	Details          []*entity.InvoiceDetail
	Sequence         int64
	IssueDate        time.Time
	DocumentDiscount decimal.Decimal // descuento global, se resta del total a pagar
	PaymentCode      string          // forma de pago; vacío = 01
	AdditionalInfo   []AdditionalField
}

// TaxTotal total por tarifa de IVA (totalImpuesto).
type TaxTotal struct {
	RateCode sri.IVARate
	Tariff   int64
	Base     decimal.Decimal
	Value    decimal.Decimal
}

// LineTotals montos sin redondear de una línea.
type LineTotals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Tariff   int64
}

// Totals montos del comprobante sin redondear; se redondean solo al serializar.
type Totals struct {
	Lines            []LineTotals
	Subtotal         decimal.Decimal // totalSinImpuestos
	LineDiscount     decimal.Decimal
	DocumentDiscount decimal.Decimal
	Tax              decimal.Decimal
	Tip              decimal.Decimal
	Grand            decimal.Decimal // importeTotal
	ByRate           []TaxTotal
}

// TotalDiscount totalDescuento: descuentos de línea más descuento global.
func (t *Totals) TotalDiscount() decimal.Decimal {
	return t.LineDiscount.Add(t.DocumentDiscount)
}

// BuiltDocument resultado de Build.
type BuiltDocument struct {
	XML       []byte
	AccessKey string
	Number    string // 001-001-000000042
	IssueDate time.Time
	Totals    Totals
}

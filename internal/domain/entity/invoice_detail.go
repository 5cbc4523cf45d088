package entity

import (
	"github.com/shopspring/decimal"
)

// InvoiceDetail línea de venta (detalle). Los montos no se redondean hasta
// la serialización.
type InvoiceDetail struct {
	Code        string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxRateCode string // código de porcentaje IVA del SRI (ej. "4" = 15 %)
}

// Subtotal cantidad * precio unitario - descuento.
func (d *InvoiceDetail) Subtotal() decimal.Decimal {
	return d.Quantity.Mul(d.UnitPrice).Sub(d.Discount)
}

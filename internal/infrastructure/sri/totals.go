package sri

import (
	"github.com/jhoicas/facturador-sri/internal/domain"
	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	"github.com/jhoicas/facturador-sri/pkg/sri"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeTotals calcula subtotales, IVA y total sin redondeo intermedio.
// importeTotal = Σ subtotal + Σ IVA - descuento global (+ propina, siempre 0).
func ComputeTotals(details []*entity.InvoiceDetail, documentDiscount decimal.Decimal) (*Totals, error) {
	if len(details) == 0 {
		return nil, domain.NewValidationError("detalles", "la factura debe tener al menos un detalle")
	}
	if documentDiscount.IsNegative() {
		return nil, domain.NewValidationError("descuento", "no puede ser negativo")
	}

	t := &Totals{DocumentDiscount: documentDiscount, Tip: decimal.Zero}
	byRate := map[sri.IVARate]*TaxTotal{}
	var order []sri.IVARate

	for i, d := range details {
		if d == nil {
			return nil, domain.NewValidationError("detalles", "línea %d nula", i+1)
		}
		if !d.Quantity.IsPositive() {
			return nil, domain.NewValidationError("cantidad", "línea %d: debe ser mayor que cero", i+1)
		}
		if d.UnitPrice.IsNegative() {
			return nil, domain.NewValidationError("precioUnitario", "línea %d: no puede ser negativo", i+1)
		}
		if d.Discount.IsNegative() {
			return nil, domain.NewValidationError("descuento", "línea %d: no puede ser negativo", i+1)
		}
		rate := sri.IVARate(d.TaxRateCode)
		tariff, ok := rate.Tariff()
		if !ok {
			return nil, domain.NewValidationError("codigoPorcentaje", "línea %d: tarifa %q no soportada", i+1, d.TaxRateCode)
		}
		sub := d.Subtotal()
		if sub.IsNegative() {
			return nil, domain.NewValidationError("descuento", "línea %d: descuento mayor que el precio", i+1)
		}
		tax := sub.Mul(decimal.NewFromInt(tariff)).Div(hundred)

		t.Lines = append(t.Lines, LineTotals{Subtotal: sub, Tax: tax, Tariff: tariff})
		t.Subtotal = t.Subtotal.Add(sub)
		t.LineDiscount = t.LineDiscount.Add(d.Discount)
		t.Tax = t.Tax.Add(tax)

		agg, ok := byRate[rate]
		if !ok {
			agg = &TaxTotal{RateCode: rate, Tariff: tariff}
			byRate[rate] = agg
			order = append(order, rate)
		}
		agg.Base = agg.Base.Add(sub)
		agg.Value = agg.Value.Add(tax)
	}
	for _, r := range order {
		t.ByRate = append(t.ByRate, *byRate[r])
	}

	t.Grand = t.Subtotal.Add(t.Tax).Sub(documentDiscount).Add(t.Tip)
	if t.Grand.IsNegative() {
		return nil, domain.NewValidationError("descuento", "el descuento global supera el total")
	}
	return t, nil
}

// formatMoney monto con 2 decimales (campos monetarios).
func formatMoney(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// formatQuantity cantidad y precio unitario con 6 decimales.
func formatQuantity(d decimal.Decimal) string {
	return d.Round(6).StringFixed(6)
}

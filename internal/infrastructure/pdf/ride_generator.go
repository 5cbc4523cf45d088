// Package pdf genera el RIDE (Representación Impresa del Documento
// Electrónico) de una factura del SRI.
//
// Layout A4:
//
//	┌──────────────────────────────┬──────────────────────────────┐
//	│ EMISOR: razón social, RUC,   │ FACTURA N° 001-001-000000042 │
//	│ direcciones, contabilidad    │ autorización, fecha, ambiente│
//	│                              │ CLAVE DE ACCESO (code128)    │
//	├──────────────────────────────┴──────────────────────────────┤
//	│ COMPRADOR: razón social, identificación, fecha emisión      │
//	│ TABLA: Cód | Cant | Descripción | P.Unit | Desc | Total     │
//	│ INFO ADICIONAL            │ TOTALES por tarifa, IVA, total  │
//	│ FORMA DE PAGO                                               │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	infrasri "github.com/jhoicas/facturador-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturador-sri/pkg/sri"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// pendingAuthorization texto cuando aún no hay número de autorización.
const pendingAuthorization = "PENDIENTE DE AUTORIZACIÓN"

// RIDEGenerator genera el RIDE con Maroto v2.
type RIDEGenerator struct{}

// NewRIDEGenerator construye el generador.
func NewRIDEGenerator() *RIDEGenerator { return &RIDEGenerator{} }

// Render genera el PDF. auth puede ser nil si la factura no está autorizada.
func (g *RIDEGenerator) Render(_ context.Context, inv *infrasri.InvoiceView, auth *infrasri.AuthorizedDocument) ([]byte, error) {
	if inv == nil {
		return nil, fmt.Errorf("pdf: factura nula")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle("RIDE Factura "+inv.Number, true).
		WithAuthor(inv.LegalName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(inv, auth))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(customerRow(inv))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(inv.Lines)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(summaryRow(inv))
	m.AddRows(paymentRows(inv.Payments)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar RIDE: %w", err)
	}
	return doc.GetBytes(), nil
}

// headerRow: emisor (izq) y bloque de autorización con código de barras (der).
func headerRow(inv *infrasri.InvoiceView, auth *infrasri.AuthorizedDocument) core.Row {
	authNumber, authDate := pendingAuthorization, "-"
	if auth != nil {
		authNumber = nonEmpty(auth.AuthorizationNumber, pendingAuthorization)
		if auth.AuthorizedAt != nil {
			authDate = auth.AuthorizedAt.Format("02/01/2006 15:04:05")
		}
	}
	small := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 7, Top: top, Color: colorGray})
	}

	left := col.New(6).Add(
		text.New(inv.LegalName, props.Text{Style: fontstyle.Bold, Size: 11, Color: colorPrimary, Top: 1}),
		small(nonEmpty(inv.CommercialName, ""), 8),
		small("Dir. Matriz: "+nonEmpty(inv.HeadOfficeAddress, "-"), 13),
		small("Dir. Establecimiento: "+nonEmpty(inv.EstablishmentAddress, "-"), 17),
		small("Contribuyente Especial: "+nonEmpty(inv.SpecialTaxpayer, "-"), 21),
		small("Obligado a llevar contabilidad: "+nonEmpty(inv.RequiredToKeepAccounts, "NO"), 25),
	)

	right := col.New(6).Add(
		text.New("R.U.C.: "+inv.RUC, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 1}),
		text.New("FACTURA N° "+inv.Number, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 6}),
		small("NÚMERO DE AUTORIZACIÓN:", 12),
		text.New(authNumber, props.Text{Size: 6.5, Top: 15}),
		small("FECHA Y HORA DE AUTORIZACIÓN: "+authDate, 19),
		small("AMBIENTE: "+sri.EnvironmentName(inv.Environment)+"   EMISIÓN: NORMAL", 23),
		small("CLAVE DE ACCESO:", 27),
	)

	return row.New(46).Add(left, right.Add(
		code.NewBar(inv.AccessKey, props.Barcode{Top: 31, Percent: 100}),
	))
}

// customerRow: datos del comprador.
func customerRow(inv *infrasri.InvoiceView) core.Row {
	return row.New(14).Add(
		col.New(8).Add(
			text.New("Razón Social / Nombres: "+inv.CustomerName, props.Text{Style: fontstyle.Bold, Size: 8, Top: 1}),
			text.New("Identificación: "+inv.CustomerID, props.Text{Size: 8, Top: 5}),
			text.New("Dirección: "+nonEmpty(inv.CustomerAddress, "N/A"), props.Text{Size: 8, Top: 9, Color: colorGray}),
		),
		col.New(4).Add(
			text.New("Fecha Emisión: "+inv.IssueDate, props.Text{Size: 8, Align: align.Right, Top: 1}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 7, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(7).Add(
		h("Cód.", 2, align.Left),
		h("Cant.", 1, align.Center),
		h("Descripción", 4, align.Left),
		h("P. Unitario", 2, align.Right),
		h("Desc.", 1, align.Right),
		h("P. Total", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

func tableDetailRows(lines []infrasri.LineView) []core.Row {
	out := make([]core.Row, 0, len(lines))
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 7, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	for _, l := range lines {
		out = append(out, row.New(6).Add(
			cell(l.Code, 2, align.Left),
			cell(trimQuantity(l.Quantity), 1, align.Center),
			cell(l.Description, 4, align.Left),
			cell(l.UnitPrice.StringFixed(2), 2, align.Right),
			cell(l.Discount.StringFixed(2), 1, align.Right),
			cell(l.Subtotal.StringFixed(2), 2, align.Right),
		))
	}
	return out
}

// summaryRow: información adicional (izq) y totales por tarifa (der).
func summaryRow(inv *infrasri.InvoiceView) core.Row {
	info := col.New(6).Add(text.New("Información Adicional", props.Text{
		Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
	}))
	top := 6.0
	for _, f := range inv.Additional {
		info.Add(text.New(f.Name+": "+f.Value, props.Text{Size: 7, Top: top, Color: colorGray}))
		top += 4
	}

	labels := col.New(4)
	values := col.New(2)
	top = 1.0
	add := func(label string, value decimal.Decimal, bold bool) {
		style := fontstyle.Normal
		if bold {
			style = fontstyle.Bold
		}
		labels.Add(text.New(label, props.Text{Style: style, Size: 8, Align: align.Right, Top: top, Right: 2}))
		values.Add(text.New(value.StringFixed(2), props.Text{Style: style, Size: 8, Align: align.Right, Top: top}))
		top += 4
	}
	for _, t := range inv.Taxes {
		add(fmt.Sprintf("SUBTOTAL %s", rateLabel(t.RateCode)), t.Base, false)
	}
	add("SUBTOTAL SIN IMPUESTOS", inv.Subtotal, false)
	add("TOTAL DESCUENTO", inv.Discount, false)
	for _, t := range inv.Taxes {
		if t.Value.IsPositive() {
			add(fmt.Sprintf("IVA %s", rateLabel(t.RateCode)), t.Value, false)
		}
	}
	add("PROPINA", inv.Tip, false)
	add("VALOR TOTAL", inv.Total, true)

	height := top + 2
	if h := 8 + 4*float64(len(inv.Additional)); h > height {
		height = h
	}
	return row.New(height).Add(info, labels, values)
}

func paymentRows(payments []infrasri.PaymentView) []core.Row {
	if len(payments) == 0 {
		return nil
	}
	rows := []core.Row{row.New(6).Add(col.New(12).Add(text.New("Forma de pago", props.Text{
		Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2,
	})))}
	for _, p := range payments {
		rows = append(rows, row.New(5).Add(
			col.New(8).Add(text.New(paymentLabel(p.Code), props.Text{Size: 7, Top: 1})),
			col.New(4).Add(text.New(p.Total.StringFixed(2), props.Text{Size: 7, Align: align.Right, Top: 1})),
		))
	}
	return rows
}

func rateLabel(code string) string {
	if t, ok := sri.IVARate(code).Tariff(); ok {
		return fmt.Sprintf("%d%%", t)
	}
	return code
}

func paymentLabel(code string) string {
	switch code {
	case sri.PaymentWithoutFinancialSystem:
		return "01 - SIN UTILIZACIÓN DEL SISTEMA FINANCIERO"
	case sri.PaymentDebitCard:
		return "16 - TARJETA DE DÉBITO"
	case sri.PaymentElectronicMoney:
		return "17 - DINERO ELECTRÓNICO"
	case sri.PaymentCreditCard:
		return "19 - TARJETA DE CRÉDITO"
	case sri.PaymentOtherFinancialSystem:
		return "20 - OTROS CON UTILIZACIÓN DEL SISTEMA FINANCIERO"
	}
	return code
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// trimQuantity muestra la cantidad sin ceros de relleno (2.500000 -> 2.5).
func trimQuantity(d decimal.Decimal) string {
	return d.String()
}

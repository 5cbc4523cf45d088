package sri_test

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/jhoicas/facturador-sri/internal/domain"
	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	domainsri "github.com/jhoicas/facturador-sri/internal/domain/sri"
	srixml "github.com/jhoicas/facturador-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturador-sri/pkg/sri"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func testIssuer() *entity.Issuer {
	return &entity.Issuer{
		RUC:                  "1102762885001",
		LegalName:            "DISTRIBUIDORA EJEMPLO S.A.",
		CommercialName:       "MI TIENDA",
		HeadOfficeAddress:    "Av. Principal 123",
		EstablishmentAddress: "Av. Principal 123",
		Establishment:        "001",
		EmissionPoint:        "001",
		Environment:          sri.EnvironmentTest,
	}
}

func testContext(details ...*entity.InvoiceDetail) *srixml.InvoiceBuildContext {
	return &srixml.InvoiceBuildContext{
		Issuer:    testIssuer(),
		Customer:  &entity.Customer{Identification: "1710034065", Name: "Juan Pérez", Email: "juan@example.com"},
		Details:   details,
		Sequence:  42,
		IssueDate: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func line(qty, price string, rate sri.IVARate) *entity.InvoiceDetail {
	return &entity.InvoiceDetail{
		Code:        "P001",
		Description: "Producto",
		Quantity:    decimal.RequireFromString(qty),
		UnitPrice:   decimal.RequireFromString(price),
		TaxRateCode: string(rate),
	}
}

func newBuilder() *srixml.XMLBuilderService {
	return srixml.NewXMLBuilderService(domainsri.NewAccessKeyGeneratorWithSource(func() int { return 12345678 }))
}

func parse(t *testing.T, data []byte) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(data))
	root := doc.Root()
	require.NotNil(t, root)
	return root
}

func text(t *testing.T, root *etree.Element, path string) string {
	t.Helper()
	el := root.FindElement(path)
	require.NotNil(t, el, "no se encontró %s", path)
	return el.Text()
}

// ─── Build ────────────────────────────────────────────────────────────────────

func TestBuild_SingleLineTotals(t *testing.T) {
	doc, err := newBuilder().Build(testContext(line("2", "10.00", sri.IVA15)))
	require.NoError(t, err)

	assert.Equal(t, "20.00", doc.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "3.00", doc.Totals.Tax.StringFixed(2))
	assert.Equal(t, "23.00", doc.Totals.Grand.StringFixed(2))
	assert.Equal(t, "001-001-000000042", doc.Number)
	assert.Equal(t, "1501202401110276288500110010010000000421234567817", doc.AccessKey)

	root := parse(t, doc.XML)
	assert.Equal(t, "factura", root.Tag)
	assert.Equal(t, "comprobante", root.SelectAttrValue("id", ""))
	assert.Equal(t, "1.1.0", root.SelectAttrValue("version", ""))
	assert.Equal(t, doc.AccessKey, text(t, root, "infoTributaria/claveAcceso"))
	assert.Equal(t, "000000042", text(t, root, "infoTributaria/secuencial"))
	assert.Equal(t, "15/01/2024", text(t, root, "infoFactura/fechaEmision"))
	assert.Equal(t, "20.00", text(t, root, "infoFactura/totalSinImpuestos"))
	assert.Equal(t, "23.00", text(t, root, "infoFactura/importeTotal"))
	assert.Equal(t, "0.00", text(t, root, "infoFactura/propina"))
	assert.Equal(t, "DOLAR", text(t, root, "infoFactura/moneda"))
	assert.Equal(t, "01", text(t, root, "infoFactura/pagos/pago/formaPago"))
	assert.Equal(t, "23.00", text(t, root, "infoFactura/pagos/pago/total"))
	assert.Equal(t, "2", text(t, root, "infoFactura/totalConImpuestos/totalImpuesto/codigo"))
	assert.Equal(t, "4", text(t, root, "infoFactura/totalConImpuestos/totalImpuesto/codigoPorcentaje"))
	assert.Equal(t, "3.00", text(t, root, "infoFactura/totalConImpuestos/totalImpuesto/valor"))

	assert.Equal(t, "2.000000", text(t, root, "detalles/detalle/cantidad"))
	assert.Equal(t, "10.000000", text(t, root, "detalles/detalle/precioUnitario"))
	assert.Equal(t, "20.00", text(t, root, "detalles/detalle/precioTotalSinImpuesto"))
	assert.Equal(t, "15", text(t, root, "detalles/detalle/impuestos/impuesto/tarifa"))
	assert.Equal(t, "N/A", text(t, root, "infoFactura/direccionComprador"))
	assert.Equal(t, "NO", text(t, root, "infoFactura/obligadoContabilidad"))
	assert.Nil(t, root.FindElement("infoFactura/contribuyenteEspecial"))
}

func TestComputeTotals_NoIntermediateRounding(t *testing.T) {
	// el IVA acumulado se conserva exacto (0.14985) hasta formatear
	details := []*entity.InvoiceDetail{
		line("1", "0.333", sri.IVA15),
		line("1", "0.333", sri.IVA15),
		line("1", "0.333", sri.IVA15),
		line("3.5", "1.239999", sri.IVA0),
	}
	totals, err := srixml.ComputeTotals(details, decimal.RequireFromString("0.10"))
	require.NoError(t, err)

	var sumSub, sumTax decimal.Decimal
	for _, l := range totals.Lines {
		sumSub = sumSub.Add(l.Subtotal)
		sumTax = sumTax.Add(l.Tax)
	}
	want := sumSub.Add(sumTax).Sub(decimal.RequireFromString("0.10"))
	assert.True(t, totals.Grand.Equal(want), "importeTotal = Σ subtotal + Σ IVA - descuento")
	assert.Equal(t, want.Round(2).StringFixed(2), totals.Grand.Round(2).StringFixed(2))
	assert.Equal(t, "0.999", totals.ByRate[0].Base.String())
	assert.Equal(t, "0.14985", totals.ByRate[0].Value.String())
	require.Len(t, totals.ByRate, 2)
	assert.Equal(t, sri.IVA0, totals.ByRate[1].RateCode)
}

func TestBuild_LineDiscountAndDocumentDiscount(t *testing.T) {
	d := line("1", "100", sri.IVA15)
	d.Discount = decimal.NewFromInt(10)
	ctx := testContext(d)
	ctx.DocumentDiscount = decimal.NewFromInt(5)

	doc, err := newBuilder().Build(ctx)
	require.NoError(t, err)
	root := parse(t, doc.XML)

	assert.Equal(t, "90.00", text(t, root, "infoFactura/totalSinImpuestos"))
	assert.Equal(t, "15.00", text(t, root, "infoFactura/totalDescuento"))
	assert.Equal(t, "13.50", text(t, root, "infoFactura/totalConImpuestos/totalImpuesto/valor"))
	assert.Equal(t, "98.50", text(t, root, "infoFactura/importeTotal"))
	assert.Equal(t, "10.00", text(t, root, "detalles/detalle/descuento"))
}

func TestBuild_CustomerIdentificationType(t *testing.T) {
	cases := map[string]string{
		"1710034065001": sri.IDTypeRUC,
		"1710034065":    sri.IDTypeCedula,
		"P1234567":      sri.IDTypePassport,
	}
	for id, want := range cases {
		ctx := testContext(line("1", "1", sri.IVA15))
		ctx.Customer.Identification = id
		doc, err := newBuilder().Build(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, text(t, parse(t, doc.XML), "infoFactura/tipoIdentificacionComprador"), id)
	}
}

func TestBuild_AdditionalInfoAndTextCleanup(t *testing.T) {
	d := line("1", "1", sri.IVA15)
	d.Description = "Café molido\x07 "
	ctx := testContext(d)
	ctx.Issuer.SpecialTaxpayer = "5368"
	ctx.Issuer.RequiredToKeepAccounts = true
	ctx.AdditionalInfo = []srixml.AdditionalField{
		{Name: "Vendedor", Value: "María"},
		{Name: "Email", Value: "juan@example.com"},
		{Name: "Vacío", Value: ""},
	}

	doc, err := newBuilder().Build(ctx)
	require.NoError(t, err)
	root := parse(t, doc.XML)

	assert.Equal(t, "Café molido", text(t, root, "detalles/detalle/descripcion"))
	assert.Equal(t, "5368", text(t, root, "infoFactura/contribuyenteEspecial"))
	assert.Equal(t, "SI", text(t, root, "infoFactura/obligadoContabilidad"))

	fields := root.FindElements("infoAdicional/campoAdicional")
	require.Len(t, fields, 2)
	assert.Equal(t, "Vendedor", fields[0].SelectAttrValue("nombre", ""))
	assert.Equal(t, "María", fields[0].Text())
	assert.Equal(t, "Email", fields[1].SelectAttrValue("nombre", ""))
}

func TestBuild_ValidationErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *srixml.InvoiceBuildContext)
	}{
		{"sin detalles", func(c *srixml.InvoiceBuildContext) { c.Details = nil }},
		{"cantidad cero", func(c *srixml.InvoiceBuildContext) { c.Details[0].Quantity = decimal.Zero }},
		{"tarifa desconocida", func(c *srixml.InvoiceBuildContext) { c.Details[0].TaxRateCode = "9" }},
		{"descuento mayor al precio", func(c *srixml.InvoiceBuildContext) { c.Details[0].Discount = decimal.NewFromInt(50) }},
		{"sin identificación", func(c *srixml.InvoiceBuildContext) { c.Customer.Identification = " " }},
		{"RUC emisor inválido", func(c *srixml.InvoiceBuildContext) { c.Issuer.RUC = "ABC" }},
		{"forma de pago inválida", func(c *srixml.InvoiceBuildContext) { c.PaymentCode = "99" }},
		{"secuencial cero", func(c *srixml.InvoiceBuildContext) { c.Sequence = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := testContext(line("2", "10", sri.IVA15))
			tc.mutate(ctx)
			_, err := newBuilder().Build(ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestBuild_NilContext(t *testing.T) {
	_, err := newBuilder().Build(nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestValidate_MatchesBuildWithoutSequence(t *testing.T) {
	ok := testContext(line("2", "10", sri.IVA15))
	ok.Sequence = 0
	require.NoError(t, newBuilder().Validate(ok), "el secuencial aún no se conoce al validar")

	cases := []struct {
		name   string
		mutate func(c *srixml.InvoiceBuildContext)
	}{
		{"forma de pago inválida", func(c *srixml.InvoiceBuildContext) { c.PaymentCode = "99" }},
		{"tarifa desconocida", func(c *srixml.InvoiceBuildContext) { c.Details[0].TaxRateCode = "9" }},
		{"descuento mayor al precio", func(c *srixml.InvoiceBuildContext) { c.Details[0].Discount = decimal.NewFromInt(50) }},
		{"descuento global negativo", func(c *srixml.InvoiceBuildContext) { c.DocumentDiscount = decimal.NewFromInt(-1) }},
		{"nombre vacío", func(c *srixml.InvoiceBuildContext) { c.Customer.Name = "\t" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := testContext(line("2", "10", sri.IVA15))
			tc.mutate(ctx)
			assert.ErrorIs(t, newBuilder().Validate(ctx), domain.ErrValidation)
		})
	}
}

func TestBuild_IssueDateInEcuadorTime(t *testing.T) {
	ctx := testContext(line("1", "10", sri.IVA15))
	// 21:30 del 15/01 en Guayaquil.
	ctx.IssueDate = time.Date(2024, 1, 16, 2, 30, 0, 0, time.UTC)

	doc, err := newBuilder().Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, "15/01/2024", text(t, parse(t, doc.XML), "infoFactura/fechaEmision"))
	assert.Equal(t, "15012024", doc.AccessKey[:8])

	doc, err = newBuilder().WithLocation(time.UTC).Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, "16012024", doc.AccessKey[:8])
}

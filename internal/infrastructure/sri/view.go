package sri

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// InvoiceView datos de una factura leídos desde su XML (firmado o autorizado),
// usados para el RIDE y la CLI.
type InvoiceView struct {
	AccessKey              string
	Environment            string
	LegalName              string
	CommercialName         string
	RUC                    string
	Number                 string // estab-ptoEmi-secuencial
	HeadOfficeAddress      string
	EstablishmentAddress   string
	SpecialTaxpayer        string
	RequiredToKeepAccounts string
	IssueDate              string // dd/mm/aaaa
	CustomerIDType         string
	CustomerID             string
	CustomerName           string
	CustomerAddress        string
	Subtotal               decimal.Decimal
	Discount               decimal.Decimal
	Tip                    decimal.Decimal
	Total                  decimal.Decimal
	Taxes                  []TaxView
	Lines                  []LineView
	Payments               []PaymentView
	Additional             []AdditionalField
	Signed                 bool
}

// TaxView totalImpuesto.
type TaxView struct {
	RateCode string
	Base     decimal.Decimal
	Value    decimal.Decimal
}

// LineView detalle.
type LineView struct {
	Code        string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	Subtotal    decimal.Decimal
	Tariff      string
}

// PaymentView pago.
type PaymentView struct {
	Code  string
	Total decimal.Decimal
}

// decimalReader acumula el primer error de conversión.
type decimalReader struct {
	err error
}

func (r *decimalReader) read(el *etree.Element, path string) decimal.Decimal {
	s := childText(el, path)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("sri: %s=%q no es numérico", path, s)
	}
	return d
}

// ParseInvoice interpreta un XML factura.
func ParseInvoice(data []byte) (*InvoiceView, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("sri: factura ilegible: %w", err)
	}
	root := doc.SelectElement("factura")
	if root == nil {
		return nil, fmt.Errorf("sri: el documento no es una factura")
	}
	it := root.SelectElement("infoTributaria")
	inf := root.SelectElement("infoFactura")
	if it == nil || inf == nil {
		return nil, fmt.Errorf("sri: faltan infoTributaria o infoFactura")
	}

	var dr decimalReader
	v := &InvoiceView{
		AccessKey:              childText(it, "claveAcceso"),
		Environment:            childText(it, "ambiente"),
		LegalName:              childText(it, "razonSocial"),
		CommercialName:         childText(it, "nombreComercial"),
		RUC:                    childText(it, "ruc"),
		Number:                 childText(it, "estab") + "-" + childText(it, "ptoEmi") + "-" + childText(it, "secuencial"),
		HeadOfficeAddress:      childText(it, "dirMatriz"),
		EstablishmentAddress:   childText(inf, "dirEstablecimiento"),
		SpecialTaxpayer:        childText(inf, "contribuyenteEspecial"),
		RequiredToKeepAccounts: childText(inf, "obligadoContabilidad"),
		IssueDate:              childText(inf, "fechaEmision"),
		CustomerIDType:         childText(inf, "tipoIdentificacionComprador"),
		CustomerID:             childText(inf, "identificacionComprador"),
		CustomerName:           childText(inf, "razonSocialComprador"),
		CustomerAddress:        childText(inf, "direccionComprador"),
		Subtotal:               dr.read(inf, "totalSinImpuestos"),
		Discount:               dr.read(inf, "totalDescuento"),
		Tip:                    dr.read(inf, "propina"),
		Total:                  dr.read(inf, "importeTotal"),
		Signed:                 root.SelectElement("Signature") != nil,
	}

	for _, t := range inf.FindElements("totalConImpuestos/totalImpuesto") {
		v.Taxes = append(v.Taxes, TaxView{
			RateCode: childText(t, "codigoPorcentaje"),
			Base:     dr.read(t, "baseImponible"),
			Value:    dr.read(t, "valor"),
		})
	}
	for _, p := range inf.FindElements("pagos/pago") {
		v.Payments = append(v.Payments, PaymentView{Code: childText(p, "formaPago"), Total: dr.read(p, "total")})
	}
	for _, d := range root.FindElements("detalles/detalle") {
		v.Lines = append(v.Lines, LineView{
			Code:        childText(d, "codigoPrincipal"),
			Description: childText(d, "descripcion"),
			Quantity:    dr.read(d, "cantidad"),
			UnitPrice:   dr.read(d, "precioUnitario"),
			Discount:    dr.read(d, "descuento"),
			Subtotal:    dr.read(d, "precioTotalSinImpuesto"),
			Tariff:      childText(d, "impuestos/impuesto/tarifa"),
		})
	}
	for _, c := range root.FindElements("infoAdicional/campoAdicional") {
		v.Additional = append(v.Additional, AdditionalField{Name: c.SelectAttrValue("nombre", ""), Value: c.Text()})
	}
	if dr.err != nil {
		return nil, dr.err
	}
	return v, nil
}

package sri

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"time"

	"github.com/jhoicas/facturador-sri/internal/domain"
	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	domainsri "github.com/jhoicas/facturador-sri/internal/domain/sri"
	"github.com/jhoicas/facturador-sri/pkg/sri"
)

// ComprobanteID valor del atributo id del elemento raíz; la firma lo referencia como #comprobante.
const ComprobanteID = "comprobante"

// defaultCustomerAddress dirección del comprador cuando no se informa.
const defaultCustomerAddress = "N/A"

// XMLBuilderService construye el XML factura v1.1.0 (sin firma).
type XMLBuilderService struct {
	keys *domainsri.AccessKeyGenerator
	now  func() time.Time
	loc  *time.Location
}

// EcuadorLocation hora de Ecuador continental (UTC-5, sin horario de verano).
var EcuadorLocation = time.FixedZone("America/Guayaquil", -5*60*60)

// NewXMLBuilderService crea el servicio con el generador de clave de acceso.
func NewXMLBuilderService(keys *domainsri.AccessKeyGenerator) *XMLBuilderService {
	if keys == nil {
		keys = domainsri.NewAccessKeyGenerator()
	}
	return &XMLBuilderService{keys: keys, now: time.Now, loc: EcuadorLocation}
}

// WithLocation fija la zona horaria de la fecha de emisión.
func (s *XMLBuilderService) WithLocation(loc *time.Location) *XMLBuilderService {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// Validate revisa los datos de la factura sin generar clave ni XML. El
// coordinador la llama antes de pedir el secuencial.
func (s *XMLBuilderService) Validate(ctx *InvoiceBuildContext) error {
	_, _, err := s.check(ctx)
	return err
}

// check validaciones puras del comprobante; devuelve los totales y la forma de pago efectiva.
func (s *XMLBuilderService) check(ctx *InvoiceBuildContext) (*Totals, string, error) {
	if ctx == nil || ctx.Issuer == nil || ctx.Customer == nil {
		return nil, "", domain.NewValidationError("factura", "faltan emisor o comprador en el contexto")
	}
	if cleanText(ctx.Customer.Identification) == "" {
		return nil, "", domain.NewValidationError("identificacionComprador", "obligatoria")
	}
	if cleanText(ctx.Customer.Name) == "" {
		return nil, "", domain.NewValidationError("razonSocialComprador", "obligatoria")
	}
	paymentCode := ctx.PaymentCode
	if paymentCode == "" {
		paymentCode = sri.PaymentWithoutFinancialSystem
	}
	if !sri.ValidPaymentCodes[paymentCode] {
		return nil, "", domain.NewValidationError("formaPago", "código %q no soportado", paymentCode)
	}
	totals, err := ComputeTotals(ctx.Details, ctx.DocumentDiscount)
	if err != nil {
		return nil, "", err
	}
	return totals, paymentCode, nil
}

// Build valida los datos, calcula totales, genera la clave de acceso y serializa el comprobante.
func (s *XMLBuilderService) Build(ctx *InvoiceBuildContext) (*BuiltDocument, error) {
	totals, paymentCode, err := s.check(ctx)
	if err != nil {
		return nil, err
	}

	issueDate := ctx.IssueDate
	if issueDate.IsZero() {
		issueDate = s.now()
	}
	issueDate = issueDate.In(s.loc)
	issuer := ctx.Issuer
	accessKey, err := s.keys.Generate(&domainsri.AccessKeyParams{
		Date:          issueDate,
		DocType:       sri.DocTypeInvoice,
		RUC:           issuer.RUC,
		Environment:   issuer.Environment,
		Establishment: issuer.Establishment,
		EmissionPoint: issuer.EmissionPoint,
		Sequence:      ctx.Sequence,
		EmissionType:  sri.EmissionTypeNormal,
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "factura"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "id"}, Value: ComprobanteID},
			{Name: xml.Name{Local: "version"}, Value: sri.InvoiceVersion},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	// ---- infoTributaria
	start(enc, "infoTributaria")
	writeEl(enc, "ambiente", issuer.Environment)
	writeEl(enc, "tipoEmision", sri.EmissionTypeNormal)
	writeEl(enc, "razonSocial", cleanText(issuer.LegalName))
	if issuer.CommercialName != "" {
		writeEl(enc, "nombreComercial", cleanText(issuer.CommercialName))
	}
	writeEl(enc, "ruc", issuer.RUC)
	writeEl(enc, "claveAcceso", accessKey)
	writeEl(enc, "codDoc", sri.DocTypeInvoice)
	writeEl(enc, "estab", issuer.Establishment)
	writeEl(enc, "ptoEmi", issuer.EmissionPoint)
	writeEl(enc, "secuencial", domainsri.FormatSequence(ctx.Sequence))
	writeEl(enc, "dirMatriz", cleanText(issuer.HeadOfficeAddress))
	end(enc, "infoTributaria")

	// ---- infoFactura
	s.writeInfoFactura(enc, ctx, totals, issueDate, paymentCode)

	// ---- detalles
	start(enc, "detalles")
	for i, d := range ctx.Details {
		writeDetail(enc, d, totals.Lines[i])
	}
	end(enc, "detalles")

	// ---- infoAdicional
	s.writeAdditionalInfo(enc, ctx.AdditionalInfo)

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}

	return &BuiltDocument{
		XML:       buf.Bytes(),
		AccessKey: accessKey,
		Number:    domainsri.FormatInvoiceNumber(issuer.Establishment, issuer.EmissionPoint, ctx.Sequence),
		IssueDate: issueDate,
		Totals:    *totals,
	}, nil
}

func (s *XMLBuilderService) writeInfoFactura(enc *xml.Encoder, ctx *InvoiceBuildContext, totals *Totals, issueDate time.Time, paymentCode string) {
	issuer, customer := ctx.Issuer, ctx.Customer
	identification := cleanText(customer.Identification)
	address := cleanText(customer.Address)
	if address == "" {
		address = defaultCustomerAddress
	}

	start(enc, "infoFactura")
	writeEl(enc, "fechaEmision", issueDate.Format("02/01/2006"))
	writeEl(enc, "dirEstablecimiento", cleanText(issuer.EstablishmentAddress))
	if issuer.SpecialTaxpayer != "" {
		writeEl(enc, "contribuyenteEspecial", issuer.SpecialTaxpayer)
	}
	writeEl(enc, "obligadoContabilidad", yesNo(issuer.RequiredToKeepAccounts))
	writeEl(enc, "tipoIdentificacionComprador", sri.ClassifyIdentification(identification))
	writeEl(enc, "razonSocialComprador", cleanText(customer.Name))
	writeEl(enc, "identificacionComprador", identification)
	writeEl(enc, "direccionComprador", address)
	writeEl(enc, "totalSinImpuestos", formatMoney(totals.Subtotal))
	writeEl(enc, "totalDescuento", formatMoney(totals.TotalDiscount()))

	start(enc, "totalConImpuestos")
	for _, tt := range totals.ByRate {
		start(enc, "totalImpuesto")
		writeEl(enc, "codigo", sri.TaxCodeIVA)
		writeEl(enc, "codigoPorcentaje", string(tt.RateCode))
		writeEl(enc, "baseImponible", formatMoney(tt.Base))
		writeEl(enc, "valor", formatMoney(tt.Value))
		end(enc, "totalImpuesto")
	}
	end(enc, "totalConImpuestos")

	writeEl(enc, "propina", formatMoney(totals.Tip))
	writeEl(enc, "importeTotal", formatMoney(totals.Grand))
	writeEl(enc, "moneda", sri.Currency)

	start(enc, "pagos")
	start(enc, "pago")
	writeEl(enc, "formaPago", paymentCode)
	writeEl(enc, "total", formatMoney(totals.Grand))
	end(enc, "pago")
	end(enc, "pagos")
	end(enc, "infoFactura")
}

func writeDetail(enc *xml.Encoder, d *entity.InvoiceDetail, lt LineTotals) {
	start(enc, "detalle")
	writeEl(enc, "codigoPrincipal", cleanText(d.Code))
	writeEl(enc, "descripcion", cleanText(d.Description))
	writeEl(enc, "cantidad", formatQuantity(d.Quantity))
	writeEl(enc, "precioUnitario", formatQuantity(d.UnitPrice))
	writeEl(enc, "descuento", formatMoney(d.Discount))
	writeEl(enc, "precioTotalSinImpuesto", formatMoney(lt.Subtotal))
	start(enc, "impuestos")
	start(enc, "impuesto")
	writeEl(enc, "codigo", sri.TaxCodeIVA)
	writeEl(enc, "codigoPorcentaje", d.TaxRateCode)
	writeEl(enc, "tarifa", strconv.FormatInt(lt.Tariff, 10))
	writeEl(enc, "baseImponible", formatMoney(lt.Subtotal))
	writeEl(enc, "valor", formatMoney(lt.Tax))
	end(enc, "impuesto")
	end(enc, "impuestos")
	end(enc, "detalle")
}

func (s *XMLBuilderService) writeAdditionalInfo(enc *xml.Encoder, fields []AdditionalField) {
	var kept []AdditionalField
	for _, f := range fields {
		name, value := cleanText(f.Name), cleanText(f.Value)
		if name == "" || value == "" {
			continue
		}
		kept = append(kept, AdditionalField{Name: name, Value: value})
	}
	if len(kept) == 0 {
		return
	}
	start(enc, "infoAdicional")
	for _, f := range kept {
		el := xml.StartElement{
			Name: xml.Name{Local: "campoAdicional"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "nombre"}, Value: f.Name}},
		}
		_ = enc.EncodeToken(el)
		_ = enc.EncodeToken(xml.CharData(f.Value))
		_ = enc.EncodeToken(el.End())
	}
	end(enc, "infoAdicional")
}

func start(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: local}})
}

func end(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: local}})
}

func writeEl(enc *xml.Encoder, local, value string) {
	start(enc, local)
	_ = enc.EncodeToken(xml.CharData(value))
	end(enc, local)
}

func yesNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}

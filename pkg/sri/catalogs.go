// Package sri contiene catálogos y algoritmos alineados a la Ficha Técnica de
// Comprobantes Electrónicos del SRI (Ecuador), esquema offline.
package sri

// =============================================================================
// Tabla 3 - Tipos de comprobante
// =============================================================================

const (
	DocTypeInvoice = "01" // Factura
)

// =============================================================================
// Tabla 4 - Ambiente
// =============================================================================

const (
	EnvironmentTest       = "1" // Pruebas
	EnvironmentProduction = "2" // Producción
)

// ValidEnvironments ambientes aceptados por el SRI.
var ValidEnvironments = map[string]bool{
	EnvironmentTest:       true,
	EnvironmentProduction: true,
}

// EnvironmentName devuelve la descripción usada en el RIDE.
func EnvironmentName(code string) string {
	if code == EnvironmentProduction {
		return "PRODUCCIÓN"
	}
	return "PRUEBAS"
}

// =============================================================================
// Tabla 2 - Tipo de emisión
// =============================================================================

const (
	EmissionTypeNormal = "1" // Emisión normal
)

// =============================================================================
// Tabla 6 - Tipo de identificación del comprador
// =============================================================================

const (
	IDTypeRUC      = "04"
	IDTypeCedula   = "05"
	IDTypePassport = "06"
	IDTypeFinal    = "07" // Consumidor final
)

// =============================================================================
// Tabla 16/17 - Impuestos y tarifas
// =============================================================================

const (
	TaxCodeIVA = "2" // IVA
)

// IVARate identifica una tarifa de IVA por su código de porcentaje del SRI.
type IVARate string

const (
	IVA0  IVARate = "0" // 0 %
	IVA15 IVARate = "4" // 15 %
	IVA5  IVARate = "5" // 5 %
)

// ivaTariffs porcentaje entero por código de tarifa.
var ivaTariffs = map[IVARate]int64{
	IVA0:  0,
	IVA15: 15,
	IVA5:  5,
}

// Tariff devuelve el porcentaje (ej. 15) y si el código es conocido.
func (r IVARate) Tariff() (int64, bool) {
	t, ok := ivaTariffs[r]
	return t, ok
}

// =============================================================================
// Tabla 24 - Formas de pago
// =============================================================================

const (
	PaymentWithoutFinancialSystem = "01" // Sin utilización del sistema financiero
	PaymentDebitCard              = "16"
	PaymentElectronicMoney        = "17"
	PaymentCreditCard             = "19"
	PaymentOtherFinancialSystem   = "20"
)

// ValidPaymentCodes formas de pago aceptadas.
var ValidPaymentCodes = map[string]bool{
	PaymentWithoutFinancialSystem: true,
	PaymentDebitCard:              true,
	PaymentElectronicMoney:        true,
	PaymentCreditCard:             true,
	PaymentOtherFinancialSystem:   true,
}

// Currency moneda del comprobante.
const Currency = "DOLAR"

// InvoiceVersion versión del esquema factura.
const InvoiceVersion = "1.1.0"

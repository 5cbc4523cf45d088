package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una emisión de factura electrónica ante el SRI.
const (
	EmissionStatusNew              = "NEW"                // Creada, sin secuencial
	EmissionStatusSequenced        = "SEQUENCED"          // Secuencial asignado
	EmissionStatusBuilt            = "BUILT"              // XML generado y guardado
	EmissionStatusSigned           = "SIGNED"             // XML firmado y guardado
	EmissionStatusSubmitted        = "SUBMITTED"          // RECIBIDA por recepción, esperando autorización
	EmissionStatusAuthorized       = "AUTHORIZED"         // AUTORIZADO
	EmissionStatusRejectedAtSubmit = "REJECTED_AT_SUBMIT" // DEVUELTA por recepción
	EmissionStatusRejectedAtAuth   = "REJECTED_AT_AUTH"   // NO AUTORIZADO / RECHAZADO
	EmissionStatusTimedOut         = "TIMED_OUT"          // Sin veredicto dentro del presupuesto de consultas
	EmissionStatusFailed           = "FAILED"             // Error de validación, firma, transporte o inesperado
)

// IsTerminalEmissionStatus indica si el estado ya no avanza.
func IsTerminalEmissionStatus(s string) bool {
	switch s {
	case EmissionStatusAuthorized, EmissionStatusRejectedAtSubmit, EmissionStatusRejectedAtAuth,
		EmissionStatusTimedOut, EmissionStatusFailed:
		return true
	}
	return false
}

// Invoice registro de una emisión (cabecera). La clave de acceso identifica
// todos los artefactos XML guardados.
type Invoice struct {
	ID                  string
	AccessKey           string
	Establishment       string
	EmissionPoint       string
	Sequence            int64
	Number              string // 001-001-000000042
	Date                time.Time
	Environment         string
	CustomerID          string
	CustomerName        string
	NetTotal            decimal.Decimal
	DiscountTotal       decimal.Decimal
	TaxTotal            decimal.Decimal
	GrandTotal          decimal.Decimal
	Status              string
	AuthorizationNumber string
	AuthorizedAt        *time.Time
	SRIMessages         string // Mensajes del SRI (JSON)
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

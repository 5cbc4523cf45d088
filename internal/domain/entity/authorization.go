package entity

import "time"

// Estados devueltos por los servicios del SRI, más TIMEOUT y ERROR locales.
const (
	SRIStateReceived      = "RECIBIDA"
	SRIStateReturned      = "DEVUELTA"
	SRIStateAuthorized    = "AUTORIZADO"
	SRIStateNotAuthorized = "NO AUTORIZADO"
	SRIStateRejected      = "RECHAZADO"
	SRIStateTimeout       = "TIMEOUT"
	SRIStateError         = "ERROR"
)

// SRIMessage mensaje itemizado de recepción o autorización.
type SRIMessage struct {
	Identifier     string `json:"identificador"`
	Message        string `json:"mensaje"`
	Type           string `json:"tipo"`
	AdditionalInfo string `json:"informacionAdicional,omitempty"`
}

// SubmitResult resultado del envío a recepción.
type SubmitResult struct {
	Accepted bool
	State    string // RECIBIDA, DEVUELTA o ERROR
	Messages []SRIMessage
}

// AuthorizationResult resultado de la consulta de autorización.
type AuthorizationResult struct {
	State               string
	AuthorizationNumber string
	AuthorizedAt        *time.Time
	Environment         string
	Document            string // comprobante autorizado (XML)
	Messages            []SRIMessage
	Attempts            int
}

// Authorized indica si el SRI autorizó el comprobante.
func (r *AuthorizationResult) Authorized() bool {
	return r != nil && r.State == SRIStateAuthorized
}

package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jhoicas/facturador-sri/internal/domain/entity"
)

// Taxonomía de fallos de la emisión electrónica. Cada tipo concreto se
// compara con errors.Is contra su centinela.
var (
	ErrValidation            = errors.New("datos inválidos")
	ErrConfiguration         = errors.New("configuración inválida")
	ErrSigning               = errors.New("error de firma")
	ErrSubmissionRejected    = errors.New("comprobante devuelto por recepción")
	ErrAuthorizationRejected = errors.New("comprobante no autorizado")
	ErrTimeout               = errors.New("sin respuesta de autorización")
	ErrTransport             = errors.New("error de comunicación con el SRI")
)

// ValidationError dato de entrada mal formado; se rechaza antes de cualquier llamada remota.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validación: %s", e.Reason)
	}
	return fmt.Sprintf("validación: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError atajo para campos inválidos.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConfigurationError certificado u otro recurso de arranque inválido. Fatal al iniciar.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuración: %s: %v", e.Reason, e.Err)
	}
	return "configuración: " + e.Reason
}

func (e *ConfigurationError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

// SigningError falló la operación criptográfica o la manipulación del XML a firmar.
type SigningError struct {
	Step string
	Err  error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("firma (%s): %v", e.Step, e.Err)
}

func (e *SigningError) Unwrap() []error { return []error{ErrSigning, e.Err} }

// SubmissionRejected recepción devolvió el comprobante (DEVUELTA).
// Se corrige y reenvía con un nuevo secuencial.
type SubmissionRejected struct {
	AccessKey string
	Messages  []entity.SRIMessage
}

func (e *SubmissionRejected) Error() string {
	return fmt.Sprintf("recepción DEVUELTA %s: %s", e.AccessKey, joinMessages(e.Messages))
}

func (e *SubmissionRejected) Unwrap() error { return ErrSubmissionRejected }

// AuthorizationRejected el SRI negó la autorización (NO AUTORIZADO / RECHAZADO).
type AuthorizationRejected struct {
	AccessKey string
	State     string
	Messages  []entity.SRIMessage
}

func (e *AuthorizationRejected) Error() string {
	return fmt.Sprintf("autorización %s %s: %s", e.State, e.AccessKey, joinMessages(e.Messages))
}

func (e *AuthorizationRejected) Unwrap() error { return ErrAuthorizationRejected }

// TimeoutError no hubo veredicto dentro del presupuesto de consultas. Se vuelve
// a consultar con la misma clave de acceso, sin reenviar.
type TimeoutError struct {
	AccessKey string
	Attempts  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("autorización de %s sin respuesta tras %d intentos", e.AccessKey, e.Attempts)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// TransportError falla de red o de protocolo. Retryable indica si conviene reintentar.
type TransportError struct {
	Op         string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// IsRetryable clasifica un error de consulta: solo los TransportError marcados
// como reintentables continúan el ciclo.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return false
}

func joinMessages(msgs []entity.SRIMessage) string {
	if len(msgs) == 0 {
		return "sin mensajes"
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		s := m.Identifier + " " + m.Message
		if m.AdditionalInfo != "" {
			s += " (" + m.AdditionalInfo + ")"
		}
		parts = append(parts, strings.TrimSpace(s))
	}
	return strings.Join(parts, "; ")
}

package sri

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/facturador-sri/internal/domain"
	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	"github.com/rs/zerolog"
)

// Valores por defecto del ciclo de consulta de autorización.
const (
	DefaultPollAttempts = 10
	DefaultPollInterval = 3 * time.Second
)

// PollOptions presupuesto de consultas: la primera es inmediata y las
// siguientes esperan Interval.
type PollOptions struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultPollOptions 10 intentos cada 3 segundos.
func DefaultPollOptions() PollOptions {
	return PollOptions{MaxAttempts: DefaultPollAttempts, Interval: DefaultPollInterval}
}

func (o PollOptions) normalized() PollOptions {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = DefaultPollAttempts
	}
	if o.Interval < 0 {
		o.Interval = 0
	}
	return o
}

// AuthorityClient envía comprobantes firmados y espera el veredicto de autorización.
type AuthorityClient struct {
	gateway Gateway
	log     zerolog.Logger
}

// NewAuthorityClient construye el cliente sobre un Gateway (SOAPClient en producción).
func NewAuthorityClient(gateway Gateway, log zerolog.Logger) *AuthorityClient {
	return &AuthorityClient{gateway: gateway, log: log.With().Str("component", "sri_authority").Logger()}
}

// Submit envía el XML firmado a recepción. Los fallos de transporte se
// devuelven como estado ERROR con un mensaje, nunca como pánico.
func (c *AuthorityClient) Submit(ctx context.Context, signed []byte) *entity.SubmitResult {
	resp, err := c.gateway.ValidateDocument(ctx, signed)
	if err != nil {
		c.log.Error().Err(err).Msg("recepción: error de comunicación")
		return &entity.SubmitResult{
			State:    entity.SRIStateError,
			Messages: []entity.SRIMessage{{Message: "Error al enviar comprobante: " + err.Error(), Type: "ERROR"}},
		}
	}
	res := &entity.SubmitResult{
		Accepted: resp.State == entity.SRIStateReceived,
		State:    resp.State,
		Messages: resp.Messages,
	}
	if res.Accepted {
		c.log.Info().Msg("recepción: comprobante RECIBIDA")
	} else {
		c.log.Warn().Str("estado", resp.State).Int("mensajes", len(resp.Messages)).Msg("recepción: comprobante no recibido")
	}
	return res
}

// PollAuthorization consulta la autorización hasta obtener un estado terminal
// o agotar el presupuesto. Devuelve TIMEOUT si se agotan los intentos y ERROR
// si falla el último intento o un error no reintentable.
func (c *AuthorityClient) PollAuthorization(ctx context.Context, accessKey string, opts PollOptions) *entity.AuthorizationResult {
	opts = opts.normalized()
	log := c.log.With().Str("access_key", accessKey).Logger()

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			log.Debug().Int("attempt", attempt).Dur("interval", opts.Interval).Msg("esperando antes de consultar autorización")
			if err := sleepCtx(ctx, opts.Interval); err != nil {
				return errorResult(attempt-1, fmt.Errorf("consulta cancelada: %w", err))
			}
		}

		resp, err := c.gateway.QueryAuthorization(ctx, accessKey)
		if err != nil {
			lastErr = err
			if attempt == opts.MaxAttempts {
				return errorResult(attempt, err)
			}
			if !domain.IsRetryable(err) {
				log.Error().Err(err).Int("attempt", attempt).Msg("autorización: error no reintentable")
				return errorResult(attempt, err)
			}
			log.Warn().Err(err).Int("attempt", attempt).Msg("autorización: error transitorio, se reintenta")
			continue
		}

		switch resp.Kind {
		case AuthorizationAuthorized:
			log.Info().Str("numero", resp.AuthorizationNumber).Int("attempt", attempt).Msg("comprobante AUTORIZADO")
			return &entity.AuthorizationResult{
				State:               entity.SRIStateAuthorized,
				AuthorizationNumber: resp.AuthorizationNumber,
				AuthorizedAt:        resp.AuthorizedAt,
				Environment:         resp.Environment,
				Document:            resp.Document,
				Messages:            resp.Messages,
				Attempts:            attempt,
			}
		case AuthorizationRejected:
			log.Warn().Str("estado", resp.State).Int("mensajes", len(resp.Messages)).Msg("comprobante no autorizado")
			return &entity.AuthorizationResult{
				State:       resp.State,
				Environment: resp.Environment,
				Messages:    resp.Messages,
				Attempts:    attempt,
			}
		case AuthorizationNotFound, AuthorizationPending:
			log.Debug().Str("kind", resp.Kind.String()).Int("attempt", attempt).Msg("autorización aún no disponible")
		case AuthorizationMalformed:
			lastErr = errors.New("respuesta de autorización mal formada: " + resp.Raw)
			log.Warn().Int("attempt", attempt).Msg("autorización: respuesta mal formada")
			if attempt == opts.MaxAttempts {
				return errorResult(attempt, lastErr)
			}
		default:
			return errorResult(attempt, fmt.Errorf("variante de respuesta desconocida: %s", resp.Kind))
		}
	}

	log.Warn().Int("attempts", opts.MaxAttempts).Msg("autorización: se agotaron los intentos")
	msg := "Se agotó el tiempo de espera para la autorización"
	if lastErr != nil {
		msg += ": " + lastErr.Error()
	}
	return &entity.AuthorizationResult{
		State:    entity.SRIStateTimeout,
		Messages: []entity.SRIMessage{{Message: msg, Type: "ADVERTENCIA"}},
		Attempts: opts.MaxAttempts,
	}
}

func errorResult(attempts int, err error) *entity.AuthorizationResult {
	return &entity.AuthorizationResult{
		State:    entity.SRIStateError,
		Messages: []entity.SRIMessage{{Message: "Error consultando autorización: " + err.Error(), Type: "ERROR"}},
		Attempts: attempts,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

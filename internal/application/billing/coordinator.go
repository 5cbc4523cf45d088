package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-sri/internal/domain"
	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	"github.com/jhoicas/facturador-sri/internal/domain/repository"
	domainsri "github.com/jhoicas/facturador-sri/internal/domain/sri"
	infrasri "github.com/jhoicas/facturador-sri/internal/infrastructure/sri"
	pkgsri "github.com/jhoicas/facturador-sri/pkg/sri"
)

// CoordinatorDeps dependencias del coordinador. Invoices y Ledger son opcionales.
type CoordinatorDeps struct {
	Sequence  repository.SequenceCounter
	Builder   DocumentBuilder
	Signer    pkgsri.Signer
	Authority Authority
	Artifacts repository.ArtifactStore
	Invoices  repository.InvoiceRepository
	Ledger    EmissionLedger
}

// InvoiceCoordinator ejecuta el ciclo de emisión de una factura:
//
//	NEW → SEQUENCED → BUILT → SIGNED → SUBMITTED →
//	  AUTHORIZED | REJECTED_AT_SUBMIT | REJECTED_AT_AUTH | TIMED_OUT | FAILED
//
// Cada XML se guarda bajo su clave de acceso antes de pasar a la etapa
// siguiente. El secuencial consumido nunca se devuelve.
type InvoiceCoordinator struct {
	issuer entity.Issuer
	poll   infrasri.PollOptions
	deps   CoordinatorDeps
	log    zerolog.Logger
	now    func() time.Time
}

// NewInvoiceCoordinator valida la configuración del emisor y las dependencias obligatorias.
func NewInvoiceCoordinator(issuer entity.Issuer, poll infrasri.PollOptions, deps CoordinatorDeps, log zerolog.Logger) (*InvoiceCoordinator, error) {
	switch {
	case deps.Sequence == nil, deps.Builder == nil, deps.Signer == nil, deps.Authority == nil, deps.Artifacts == nil:
		return nil, &domain.ConfigurationError{Reason: "coordinador: faltan dependencias obligatorias"}
	case len(issuer.RUC) != 13 || !pkgsri.IsDigits(issuer.RUC):
		return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("RUC del emisor inválido: %q", issuer.RUC)}
	case !pkgsri.ValidEnvironments[issuer.Environment]:
		return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("ambiente inválido: %q", issuer.Environment)}
	}
	return &InvoiceCoordinator{
		issuer: issuer,
		poll:   poll,
		deps:   deps,
		log:    log.With().Str("component", "coordinator").Logger(),
		now:    time.Now,
	}, nil
}

// Series serie de numeración del emisor (RUC-estab+ptoEmi).
func (c *InvoiceCoordinator) Series() string {
	return c.issuer.RUC + "-" + c.issuer.Establishment + c.issuer.EmissionPoint
}

// Emit emite una factura y devuelve siempre un resultado; nunca entra en pánico.
func (c *InvoiceCoordinator) Emit(ctx context.Context, req *EmissionRequest) (res *EmissionResult) {
	defer c.recoverInto(&res)

	if err := validateRequest(req); err != nil {
		return failed(entity.EmissionStatusNew, err)
	}

	bctx := &infrasri.InvoiceBuildContext{
		Issuer:           &c.issuer,
		Customer:         req.Customer,
		Details:          req.Items,
		IssueDate:        req.IssueDate,
		DocumentDiscount: req.DocumentDiscount,
		PaymentCode:      req.PaymentCode,
		AdditionalInfo:   req.AdditionalInfo,
	}
	if err := c.deps.Builder.Validate(bctx); err != nil {
		return failed(entity.EmissionStatusNew, err)
	}

	seq, err := c.deps.Sequence.Next(ctx, c.Series())
	if err != nil {
		c.log.Error().Err(err).Msg("no se pudo obtener el secuencial")
		return failed(entity.EmissionStatusNew, fmt.Errorf("secuencial: %w", err))
	}
	log := c.log.With().Int64("secuencial", seq).Logger()

	bctx.Sequence = seq
	built, err := c.deps.Builder.Build(bctx)
	if err != nil {
		log.Warn().Err(err).Msg("no se pudo generar el XML")
		return failed(entity.EmissionStatusSequenced, err)
	}

	key := built.AccessKey
	log = log.With().Str("clave_acceso", key).Logger()
	res = &EmissionResult{
		Stage:       entity.EmissionStatusSequenced,
		AccessKey:   key,
		Number:      built.Number,
		Environment: c.issuer.Environment,
		Total:       built.Totals.Grand.Round(2),
	}
	rec := c.newRecord(req, seq, built)

	if err := c.deps.Artifacts.Save(ctx, repository.ArtifactGenerated, key, built.XML); err != nil {
		return c.finish(ctx, rec, false, res, entity.EmissionStatusFailed, fmt.Errorf("guardar XML generado: %w", err))
	}
	res.Stage = entity.EmissionStatusBuilt
	stored := c.createRecord(ctx, rec)
	log.Info().Str("numero", built.Number).Msg("XML generado")

	signed, err := c.deps.Signer.Sign(built.XML)
	if err != nil {
		var se *domain.SigningError
		if !errors.As(err, &se) {
			err = &domain.SigningError{Step: "firmar", Err: err}
		}
		return c.finish(ctx, rec, stored, res, entity.EmissionStatusFailed, err)
	}
	if err := c.deps.Artifacts.Save(ctx, repository.ArtifactSigned, key, signed); err != nil {
		return c.finish(ctx, rec, stored, res, entity.EmissionStatusFailed, fmt.Errorf("guardar XML firmado: %w", err))
	}
	res.Stage = entity.EmissionStatusSigned
	log.Info().Msg("XML firmado")

	sub := c.deps.Authority.Submit(ctx, signed)
	if !sub.Accepted {
		res.Messages = sub.Messages
		if sub.State == entity.SRIStateError || sub.State == "" {
			return c.finish(ctx, rec, stored, res, entity.EmissionStatusFailed, &domain.TransportError{
				Op:  "validarComprobante",
				Err: errors.New(messagesText(sub.Messages)),
			})
		}
		c.saveRejected(ctx, key, signed)
		return c.finish(ctx, rec, stored, res, entity.EmissionStatusRejectedAtSubmit,
			&domain.SubmissionRejected{AccessKey: key, Messages: sub.Messages})
	}
	res.Stage = entity.EmissionStatusSubmitted
	log.Info().Msg("comprobante RECIBIDA, consultando autorización")

	auth := c.deps.Authority.PollAuthorization(ctx, key, c.poll)
	return c.settle(ctx, rec, stored, res, auth, signed)
}

// RecheckAuthorization vuelve a consultar la autorización de una emisión ya
// enviada (típicamente TIMED_OUT) con la misma clave de acceso. No reenvía.
func (c *InvoiceCoordinator) RecheckAuthorization(ctx context.Context, accessKey string) (res *EmissionResult) {
	defer c.recoverInto(&res)

	if err := domainsri.ValidateAccessKey(accessKey); err != nil {
		return failed(entity.EmissionStatusNew, err)
	}
	signed, err := c.deps.Artifacts.Load(ctx, repository.ArtifactSigned, accessKey)
	if err != nil {
		return failed(entity.EmissionStatusNew, fmt.Errorf("comprobante firmado %s: %w", accessKey, err))
	}

	res = &EmissionResult{Stage: entity.EmissionStatusSubmitted, AccessKey: accessKey, Environment: c.issuer.Environment}
	rec, stored := c.lookupRecord(ctx, accessKey)
	if rec == nil {
		rec = c.recordFromSigned(accessKey, signed)
	}
	if rec != nil {
		res.Number, res.Total = rec.Number, rec.GrandTotal
	}
	if c.rejectedAtSubmit(ctx, rec, stored, accessKey) {
		res.Status = entity.EmissionStatusRejectedAtSubmit
		res.Err = fmt.Errorf("%w: el SRI devolvió el comprobante en recepción", domain.ErrConflict)
		return res
	}

	if data, err := c.deps.Artifacts.Load(ctx, repository.ArtifactAuthorized, accessKey); err == nil {
		if doc, err := infrasri.ParseAuthorizedEnvelope(data); err == nil && doc.State == entity.SRIStateAuthorized {
			res.Status = entity.EmissionStatusAuthorized
			res.AuthorizationNumber = doc.AuthorizationNumber
			res.AuthorizedAt = doc.AuthorizedAt
			return res
		}
	}

	auth := c.deps.Authority.PollAuthorization(ctx, accessKey, c.poll)
	return c.settle(ctx, rec, stored, res, auth, signed)
}

// RecheckPending reconsulta las emisiones en TIMED_OUT registradas, hasta limit.
// Sin registro de emisiones no hay nada que listar.
func (c *InvoiceCoordinator) RecheckPending(ctx context.Context, limit int) ([]*EmissionResult, error) {
	if c.deps.Invoices == nil {
		return nil, nil
	}
	pending, err := c.deps.Invoices.ListByStatus(ctx, entity.EmissionStatusTimedOut, limit)
	if err != nil {
		return nil, fmt.Errorf("listar pendientes: %w", err)
	}
	out := make([]*EmissionResult, 0, len(pending))
	for _, inv := range pending {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res := c.RecheckAuthorization(ctx, inv.AccessKey)
		c.log.Info().Str("access_key", inv.AccessKey).Str("status", res.Status).Msg("reconsulta de pendiente")
		out = append(out, res)
	}
	return out, nil
}

// Find devuelve el registro de una emisión.
func (c *InvoiceCoordinator) Find(ctx context.Context, accessKey string) (*entity.Invoice, error) {
	if err := domainsri.ValidateAccessKey(accessKey); err != nil {
		return nil, err
	}
	if c.deps.Invoices == nil {
		return nil, domain.ErrNotFound
	}
	return c.deps.Invoices.GetByAccessKey(ctx, accessKey)
}

// settle traduce el veredicto de autorización al estado final.
func (c *InvoiceCoordinator) settle(ctx context.Context, rec *entity.Invoice, stored bool, res *EmissionResult, auth *entity.AuthorizationResult, signed []byte) *EmissionResult {
	key := res.AccessKey
	res.Messages = auth.Messages
	switch auth.State {
	case entity.SRIStateAuthorized:
		res.AuthorizationNumber = auth.AuthorizationNumber
		res.AuthorizedAt = auth.AuthorizedAt
		if auth.Environment != "" {
			res.Environment = auth.Environment
		}
		envelope, err := infrasri.AuthorizedEnvelope(auth, signed)
		if err == nil {
			err = c.deps.Artifacts.Save(ctx, repository.ArtifactAuthorized, key, envelope)
		}
		if err != nil {
			c.log.Error().Err(err).Str("clave_acceso", key).Msg("no se pudo guardar la copia autorizada")
			res.Messages = append(res.Messages, entity.SRIMessage{
				Message: "Factura autorizada, pero no se pudo guardar la copia autorizada: " + err.Error(),
				Type:    "ADVERTENCIA",
			})
		}
		return c.finish(ctx, rec, stored, res, entity.EmissionStatusAuthorized, nil)
	case entity.SRIStateNotAuthorized, entity.SRIStateRejected:
		// La copia de un rechazo en autorización lleva el veredicto; la de
		// recepción es el XML firmado tal cual.
		rejected := signed
		if envelope, err := infrasri.AuthorizedEnvelope(auth, signed); err == nil {
			rejected = envelope
		}
		c.saveRejected(ctx, key, rejected)
		return c.finish(ctx, rec, stored, res, entity.EmissionStatusRejectedAtAuth,
			&domain.AuthorizationRejected{AccessKey: key, State: auth.State, Messages: auth.Messages})
	case entity.SRIStateTimeout:
		return c.finish(ctx, rec, stored, res, entity.EmissionStatusTimedOut,
			&domain.TimeoutError{AccessKey: key, Attempts: auth.Attempts})
	default:
		return c.finish(ctx, rec, stored, res, entity.EmissionStatusFailed, &domain.TransportError{
			Op:  "autorizacionComprobante",
			Err: errors.New(messagesText(auth.Messages)),
		})
	}
}

// finish fija el estado final y actualiza el registro y el libro; los fallos
// de estas escrituras solo se registran en el log.
func (c *InvoiceCoordinator) finish(ctx context.Context, rec *entity.Invoice, stored bool, res *EmissionResult, status string, err error) *EmissionResult {
	res.Status = status
	res.Err = err

	ev := c.log.Info()
	if err != nil {
		ev = c.log.Warn().Err(err)
	}
	ev.Str("clave_acceso", res.AccessKey).Str("estado", status).Str("etapa", res.Stage).Msg("emisión finalizada")

	if rec == nil {
		return res
	}
	rec.Status = status
	rec.AuthorizationNumber = res.AuthorizationNumber
	rec.AuthorizedAt = res.AuthorizedAt
	rec.SRIMessages = encodeMessages(res.Messages)
	rec.UpdatedAt = c.now()
	if stored {
		if uerr := c.deps.Invoices.Update(ctx, rec); uerr != nil {
			c.log.Error().Err(uerr).Str("clave_acceso", rec.AccessKey).Msg("no se pudo actualizar el registro de emisión")
		}
	}
	if c.deps.Ledger != nil {
		if lerr := c.deps.Ledger.Append(ctx, rec); lerr != nil {
			c.log.Error().Err(lerr).Str("clave_acceso", rec.AccessKey).Msg("no se pudo registrar en el libro de emisiones")
		}
	}
	return res
}

func (c *InvoiceCoordinator) newRecord(req *EmissionRequest, seq int64, built *infrasri.BuiltDocument) *entity.Invoice {
	now := c.now()
	t := built.Totals
	return &entity.Invoice{
		ID:            uuid.New().String(),
		AccessKey:     built.AccessKey,
		Establishment: c.issuer.Establishment,
		EmissionPoint: c.issuer.EmissionPoint,
		Sequence:      seq,
		Number:        built.Number,
		Date:          built.IssueDate,
		Environment:   c.issuer.Environment,
		CustomerID:    req.Customer.Identification,
		CustomerName:  req.Customer.Name,
		NetTotal:      t.Subtotal.Round(2),
		DiscountTotal: t.TotalDiscount().Round(2),
		TaxTotal:      t.Tax.Round(2),
		GrandTotal:    t.Grand.Round(2),
		Status:        entity.EmissionStatusBuilt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (c *InvoiceCoordinator) createRecord(ctx context.Context, rec *entity.Invoice) bool {
	if c.deps.Invoices == nil {
		return false
	}
	if err := c.deps.Invoices.Create(ctx, rec); err != nil {
		c.log.Error().Err(err).Str("clave_acceso", rec.AccessKey).Msg("no se pudo crear el registro de emisión")
		return false
	}
	return true
}

func (c *InvoiceCoordinator) lookupRecord(ctx context.Context, accessKey string) (*entity.Invoice, bool) {
	if c.deps.Invoices == nil {
		return nil, false
	}
	rec, err := c.deps.Invoices.GetByAccessKey(ctx, accessKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.log.Warn().Err(err).Str("clave_acceso", accessKey).Msg("no se pudo leer el registro de emisión")
		}
		return nil, false
	}
	return rec, true
}

// recordFromSigned reconstruye el registro de una emisión a partir del XML
// firmado cuando no hay registro guardado. El resultado no está persistido.
func (c *InvoiceCoordinator) recordFromSigned(accessKey string, signed []byte) *entity.Invoice {
	parts, err := domainsri.ParseAccessKey(accessKey)
	if err != nil {
		return nil
	}
	view, err := infrasri.ParseInvoice(signed)
	if err != nil {
		c.log.Warn().Err(err).Str("clave_acceso", accessKey).Msg("no se pudo leer el XML firmado")
		return nil
	}
	tax := decimal.Zero
	for _, t := range view.Taxes {
		tax = tax.Add(t.Value)
	}
	now := c.now()
	return &entity.Invoice{
		ID:            uuid.New().String(),
		AccessKey:     accessKey,
		Establishment: parts.Establishment,
		EmissionPoint: parts.EmissionPoint,
		Sequence:      parts.Sequence,
		Number:        view.Number,
		Date:          parts.Date,
		Environment:   parts.Environment,
		CustomerID:    view.CustomerID,
		CustomerName:  view.CustomerName,
		NetTotal:      view.Subtotal.Round(2),
		DiscountTotal: view.Discount.Round(2),
		TaxTotal:      tax.Round(2),
		GrandTotal:    view.Total.Round(2),
		Status:        entity.EmissionStatusSubmitted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// rejectedAtSubmit indica si el SRI devolvió el comprobante en recepción. Sin
// registro guardado lo decide la copia rechazada: la de recepción es el XML
// firmado, la de autorización un sobre <autorizacion>.
func (c *InvoiceCoordinator) rejectedAtSubmit(ctx context.Context, rec *entity.Invoice, stored bool, accessKey string) bool {
	if stored {
		return rec.Status == entity.EmissionStatusRejectedAtSubmit
	}
	if ok, err := c.deps.Artifacts.Exists(ctx, repository.ArtifactAuthorized, accessKey); err != nil || ok {
		return false
	}
	data, err := c.deps.Artifacts.Load(ctx, repository.ArtifactRejected, accessKey)
	if err != nil {
		return false
	}
	_, err = infrasri.ParseAuthorizedEnvelope(data)
	return err != nil
}

func (c *InvoiceCoordinator) saveRejected(ctx context.Context, key string, signed []byte) {
	if err := c.deps.Artifacts.Save(ctx, repository.ArtifactRejected, key, signed); err != nil {
		c.log.Error().Err(err).Str("clave_acceso", key).Msg("no se pudo guardar la copia rechazada")
	}
}

// recoverInto convierte un pánico en un resultado FAILED crítico sin datos parciales.
func (c *InvoiceCoordinator) recoverInto(res **EmissionResult) {
	if p := recover(); p != nil {
		c.log.Error().Interface("panic", p).Bytes("stack", debug.Stack()).Msg("error inesperado en la emisión")
		*res = &EmissionResult{
			Status:   entity.EmissionStatusFailed,
			Critical: true,
			Err:      fmt.Errorf("error inesperado en la emisión: %v", p),
		}
	}
}

func failed(stage string, err error) *EmissionResult {
	return &EmissionResult{Status: entity.EmissionStatusFailed, Stage: stage, Err: err}
}

func validateRequest(req *EmissionRequest) error {
	switch {
	case req == nil:
		return domain.NewValidationError("venta", "solicitud vacía")
	case req.Customer == nil:
		return domain.NewValidationError("comprador", "obligatorio")
	case len(req.Items) == 0:
		return domain.NewValidationError("detalles", "la factura debe tener al menos una línea")
	}
	return nil
}

func messagesText(msgs []entity.SRIMessage) string {
	if len(msgs) == 0 {
		return "sin respuesta del SRI"
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, m.Message)
	}
	return strings.Join(parts, "; ")
}

func encodeMessages(msgs []entity.SRIMessage) string {
	if len(msgs) == 0 {
		return ""
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return ""
	}
	return string(b)
}

// DecodeMessages lee los mensajes del SRI guardados en el registro.
func DecodeMessages(s string) []entity.SRIMessage {
	if s == "" {
		return nil
	}
	var out []entity.SRIMessage
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

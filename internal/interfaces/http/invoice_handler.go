package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturador-sri/internal/application/billing"
	"github.com/jhoicas/facturador-sri/internal/application/dto"
	"github.com/jhoicas/facturador-sri/internal/domain"
	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	infrasri "github.com/jhoicas/facturador-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturador-sri/pkg/sri"
)

// InvoiceService operaciones de emisión (billing.InvoiceCoordinator).
type InvoiceService interface {
	Emit(ctx context.Context, req *billing.EmissionRequest) *billing.EmissionResult
	RecheckAuthorization(ctx context.Context, accessKey string) *billing.EmissionResult
	RecheckPending(ctx context.Context, limit int) ([]*billing.EmissionResult, error)
	Find(ctx context.Context, accessKey string) (*entity.Invoice, error)
}

// RIDEService descarga del RIDE (billing.RIDEUseCase).
type RIDEService interface {
	Download(ctx context.Context, accessKey string) ([]byte, error)
}

const defaultPendingLimit = 50

// InvoiceHandler maneja las peticiones HTTP de facturación (protegido).
type InvoiceHandler struct {
	invoices InvoiceService
	ride     RIDEService
	verifier sri.Verifier
	timeout  time.Duration
}

// NewInvoiceHandler construye el handler. timeout acota cada emisión (envío + consultas).
func NewInvoiceHandler(invoices InvoiceService, ride RIDEService, verifier sri.Verifier, timeout time.Duration) *InvoiceHandler {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &InvoiceHandler{invoices: invoices, ride: ride, verifier: verifier, timeout: timeout}
}

// Emit godoc
// @Summary      Emitir factura electrónica
// @Description  Asigna secuencial, genera, firma, envía al SRI y consulta la autorización.
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EmitInvoiceRequest  true  "Carrito del POS y comprador"
// @Success      201   {object}  dto.EmissionResponse  "AUTHORIZED"
// @Success      202   {object}  dto.EmissionResponse  "TIMED_OUT"
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.EmissionResponse  "REJECTED_AT_SUBMIT | REJECTED_AT_AUTH"
// @Failure      502   {object}  dto.EmissionResponse
// @Router       /api/invoices [post]
func (h *InvoiceHandler) Emit(c *fiber.Ctx) error {
	var in dto.EmitInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	req, err := billing.PrepareSale(&in)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()
	res := h.invoices.Emit(ctx, req)
	return c.Status(emissionStatusCode(res)).JSON(toEmissionResponse(res))
}

// Get godoc
// @Summary      Consultar registro de emisión
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        accessKey  path  string  true  "Clave de acceso (49 dígitos)"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{accessKey} [get]
func (h *InvoiceHandler) Get(c *fiber.Ctx) error {
	inv, err := h.invoices.Find(c.UserContext(), c.Params("accessKey"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(toInvoiceResponse(inv))
}

// Recheck godoc
// @Summary      Reconsultar autorización
// @Description  Vuelve a consultar la autorización con la misma clave de acceso (no reenvía).
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        accessKey  path  string  true  "Clave de acceso"
// @Success      200  {object}  dto.EmissionResponse
// @Success      202  {object}  dto.EmissionResponse
// @Failure      409  {object}  dto.EmissionResponse
// @Router       /api/invoices/{accessKey}/authorization [post]
func (h *InvoiceHandler) Recheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()
	res := h.invoices.RecheckAuthorization(ctx, c.Params("accessKey"))
	code := emissionStatusCode(res)
	if code == fiber.StatusCreated {
		code = fiber.StatusOK
	}
	return c.Status(code).JSON(toEmissionResponse(res))
}

// RecheckPending godoc
// @Summary      Reconsultar emisiones pendientes
// @Description  Reconsulta la autorización de las emisiones en TIMED_OUT, las más antiguas primero.
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        limit  query  int  false  "Máximo de emisiones (por defecto 50)"
// @Success      200  {array}   dto.EmissionResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/invoices/pending/authorization [post]
func (h *InvoiceHandler) RecheckPending(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultPendingLimit)
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout*time.Duration(limit))
	defer cancel()
	results, err := h.invoices.RecheckPending(ctx, limit)
	if err != nil && len(results) == 0 {
		return errorResponse(c, err)
	}
	out := make([]dto.EmissionResponse, 0, len(results))
	for _, r := range results {
		out = append(out, toEmissionResponse(r))
	}
	return c.JSON(out)
}

// RIDE godoc
// @Summary      Descargar RIDE (PDF)
// @Tags         invoices
// @Security     Bearer
// @Produce      application/pdf
// @Param        accessKey  path  string  true  "Clave de acceso"
// @Success      200  {file}  binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{accessKey}/ride [get]
func (h *InvoiceHandler) RIDE(c *fiber.Ctx) error {
	key := c.Params("accessKey")
	pdf, err := h.ride.Download(c.UserContext(), key)
	if err != nil {
		return errorResponse(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="RIDE-`+key+`.pdf"`)
	return c.Send(pdf)
}

// Verify godoc
// @Summary      Verificar firma XAdES-BES
// @Tags         invoices
// @Security     Bearer
// @Accept       application/xml
// @Produce      json
// @Success      200  {object}  dto.VerifyResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/invoices/verify [post]
func (h *InvoiceHandler) Verify(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "se espera el XML firmado en el cuerpo"})
	}
	out := dto.VerifyResponse{}
	if v, err := infrasri.ParseInvoice(body); err == nil {
		out.AccessKey = v.AccessKey
	}
	ok, err := h.verifier.Verify(body)
	out.Valid = ok
	if err != nil {
		out.Error = err.Error()
	}
	return c.JSON(out)
}

// emissionStatusCode traduce el estado final a código HTTP.
func emissionStatusCode(res *billing.EmissionResult) int {
	switch res.Status {
	case entity.EmissionStatusAuthorized:
		return fiber.StatusCreated
	case entity.EmissionStatusTimedOut:
		return fiber.StatusAccepted
	case entity.EmissionStatusRejectedAtSubmit, entity.EmissionStatusRejectedAtAuth:
		if errors.Is(res.Err, domain.ErrConflict) {
			return fiber.StatusConflict
		}
		return fiber.StatusUnprocessableEntity
	}
	switch {
	case res.Critical:
		return fiber.StatusInternalServerError
	case errors.Is(res.Err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(res.Err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(res.Err, domain.ErrTransport):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "factura no encontrada"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func toMessages(msgs []entity.SRIMessage) []dto.SRIMessageResponse {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]dto.SRIMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, dto.SRIMessageResponse{
			Identifier: m.Identifier, Message: m.Message, Type: m.Type, AdditionalInfo: m.AdditionalInfo,
		})
	}
	return out
}

func toEmissionResponse(res *billing.EmissionResult) dto.EmissionResponse {
	out := dto.EmissionResponse{
		Status:              res.Status,
		Stage:               res.Stage,
		AccessKey:           res.AccessKey,
		Number:              res.Number,
		AuthorizationNumber: res.AuthorizationNumber,
		AuthorizedAt:        res.AuthorizedAt,
		Environment:         res.Environment,
		Messages:            toMessages(res.Messages),
		Critical:            res.Critical,
	}
	if res.AccessKey != "" {
		total := res.Total
		out.Total = &total
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

func toInvoiceResponse(inv *entity.Invoice) dto.InvoiceResponse {
	return dto.InvoiceResponse{
		ID:                  inv.ID,
		AccessKey:           inv.AccessKey,
		Number:              inv.Number,
		Date:                inv.Date.Format("2006-01-02"),
		Environment:         inv.Environment,
		CustomerID:          inv.CustomerID,
		CustomerName:        inv.CustomerName,
		NetTotal:            inv.NetTotal,
		DiscountTotal:       inv.DiscountTotal,
		TaxTotal:            inv.TaxTotal,
		GrandTotal:          inv.GrandTotal,
		Status:              inv.Status,
		AuthorizationNumber: inv.AuthorizationNumber,
		AuthorizedAt:        inv.AuthorizedAt,
		Messages:            toMessages(billing.DecodeMessages(inv.SRIMessages)),
	}
}

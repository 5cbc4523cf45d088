package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sri/internal/application/billing"
	"github.com/jhoicas/facturador-sri/internal/application/dto"
	"github.com/jhoicas/facturador-sri/internal/domain"
	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	apphttp "github.com/jhoicas/facturador-sri/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/facturador-sri/pkg/jwt"
)

const testKey = "1501202401110276288500110010010000000421234567817"

type stubInvoices struct {
	emit    *billing.EmissionResult
	recheck *billing.EmissionResult
	pending []*billing.EmissionResult
	limit   int
	got     *billing.EmissionRequest
	record  *entity.Invoice
}

func (s *stubInvoices) Emit(_ context.Context, req *billing.EmissionRequest) *billing.EmissionResult {
	s.got = req
	return s.emit
}

func (s *stubInvoices) RecheckAuthorization(_ context.Context, _ string) *billing.EmissionResult {
	return s.recheck
}

func (s *stubInvoices) RecheckPending(_ context.Context, limit int) ([]*billing.EmissionResult, error) {
	s.limit = limit
	return s.pending, nil
}

func (s *stubInvoices) Find(_ context.Context, key string) (*entity.Invoice, error) {
	if s.record == nil || s.record.AccessKey != key {
		return nil, domain.ErrNotFound
	}
	return s.record, nil
}

type stubRIDE struct{}

func (stubRIDE) Download(_ context.Context, key string) ([]byte, error) {
	if key != testKey {
		return nil, domain.ErrNotFound
	}
	return []byte("%PDF-1.3"), nil
}

type stubVerifier struct{ ok bool }

func (v stubVerifier) Verify(_ []byte) (bool, error) { return v.ok, nil }

func newInvoiceApp(svc *stubInvoices) *fiber.App {
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Invoices:  apphttp.NewInvoiceHandler(svc, stubRIDE{}, stubVerifier{ok: true}, time.Second),
		JWTSecret: testJWTSecret,
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, role string, body []byte) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, role))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func emitBody(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(dto.EmitInvoiceRequest{
		Customer: dto.CustomerRequest{Identification: "1710034065", Name: "Juan Pérez"},
		Items:    []dto.CartItemRequest{{Code: "P001", Name: "Arroz", Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(10)}},
		Seller:   "Ana",
	})
	require.NoError(t, err)
	return b
}

func TestEmit_Authorized201(t *testing.T) {
	svc := &stubInvoices{emit: &billing.EmissionResult{
		Status: entity.EmissionStatusAuthorized, AccessKey: testKey, Number: "001-001-000000042",
		AuthorizationNumber: testKey, Total: decimal.RequireFromString("23.00"),
	}}
	resp := call(t, newInvoiceApp(svc), http.MethodPost, "/api/invoices", pkgjwt.RoleCashier, emitBody(t))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var out dto.EmissionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "001-001-000000042", out.Number)
	require.NotNil(t, out.Total)
	assert.True(t, out.Total.Equal(decimal.RequireFromString("23")))

	require.NotNil(t, svc.got)
	assert.Equal(t, "Ana", svc.got.AdditionalInfo[0].Value)
}

func TestEmit_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		res  *billing.EmissionResult
		want int
	}{
		{"devuelta", &billing.EmissionResult{Status: entity.EmissionStatusRejectedAtSubmit, Err: &domain.SubmissionRejected{AccessKey: testKey}}, http.StatusUnprocessableEntity},
		{"no autorizado", &billing.EmissionResult{Status: entity.EmissionStatusRejectedAtAuth}, http.StatusUnprocessableEntity},
		{"timeout", &billing.EmissionResult{Status: entity.EmissionStatusTimedOut, AccessKey: testKey}, http.StatusAccepted},
		{"transporte", &billing.EmissionResult{Status: entity.EmissionStatusFailed, Err: &domain.TransportError{Op: "validarComprobante"}}, http.StatusBadGateway},
		{"crítico", &billing.EmissionResult{Status: entity.EmissionStatusFailed, Critical: true}, http.StatusInternalServerError},
		{"validación", &billing.EmissionResult{Status: entity.EmissionStatusFailed, Err: domain.NewValidationError("x", "y")}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := call(t, newInvoiceApp(&stubInvoices{emit: tc.res}), http.MethodPost, "/api/invoices", pkgjwt.RoleCashier, emitBody(t))
			defer resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestEmit_InvalidCart400(t *testing.T) {
	resp := call(t, newInvoiceApp(&stubInvoices{}), http.MethodPost, "/api/invoices", pkgjwt.RoleCashier, []byte(`{"items":[]}`))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGet_FoundAndNotFound(t *testing.T) {
	svc := &stubInvoices{record: &entity.Invoice{
		AccessKey: testKey, Number: "001-001-000000042", Status: entity.EmissionStatusTimedOut,
		SRIMessages: `[{"identificador":"70","mensaje":"CLAVE DE ACCESO EN PROCESAMIENTO","tipo":"INFORMATIVO"}]`,
	}}
	app := newInvoiceApp(svc)

	resp := call(t, app, http.MethodGet, "/api/invoices/"+testKey, pkgjwt.RoleCashier, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.InvoiceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, entity.EmissionStatusTimedOut, out.Status)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "70", out.Messages[0].Identifier)

	resp2 := call(t, app, http.MethodGet, "/api/invoices/1501202401110276288500110010010000000991234567818", pkgjwt.RoleCashier, nil)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestRecheck_AdminOnly(t *testing.T) {
	svc := &stubInvoices{recheck: &billing.EmissionResult{Status: entity.EmissionStatusAuthorized, AccessKey: testKey}}
	app := newInvoiceApp(svc)

	resp := call(t, app, http.MethodPost, "/api/invoices/"+testKey+"/authorization", pkgjwt.RoleCashier, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp2 := call(t, app, http.MethodPost, "/api/invoices/"+testKey+"/authorization", pkgjwt.RoleAdmin, nil)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestRecheckPending_ListsResults(t *testing.T) {
	svc := &stubInvoices{pending: []*billing.EmissionResult{
		{Status: entity.EmissionStatusAuthorized, AccessKey: testKey},
		{Status: entity.EmissionStatusTimedOut, AccessKey: "1501202401110276288500110010010000000431234567812"},
	}}
	resp := call(t, newInvoiceApp(svc), http.MethodPost, "/api/invoices/pending/authorization?limit=5", pkgjwt.RoleAdmin, nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out []dto.EmissionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 2)
	assert.Equal(t, entity.EmissionStatusTimedOut, out[1].Status)
	assert.Equal(t, 5, svc.limit)
}

func TestRecheck_Conflict(t *testing.T) {
	svc := &stubInvoices{recheck: &billing.EmissionResult{Status: entity.EmissionStatusRejectedAtSubmit, Err: domain.ErrConflict}}
	resp := call(t, newInvoiceApp(svc), http.MethodPost, "/api/invoices/"+testKey+"/authorization", pkgjwt.RoleAdmin, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRIDE_ReturnsPDF(t *testing.T) {
	resp := call(t, newInvoiceApp(&stubInvoices{}), http.MethodGet, "/api/invoices/"+testKey+"/ride", pkgjwt.RoleCashier, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "%PDF-1.3", string(body))
}

func TestVerify(t *testing.T) {
	app := newInvoiceApp(&stubInvoices{})
	resp := call(t, app, http.MethodPost, "/api/invoices/verify", pkgjwt.RoleCashier, []byte("<factura/>"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.VerifyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Valid)

	empty := call(t, app, http.MethodPost, "/api/invoices/verify", pkgjwt.RoleCashier, nil)
	defer empty.Body.Close()
	assert.Equal(t, http.StatusBadRequest, empty.StatusCode)
}

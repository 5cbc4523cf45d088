package billing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sri/internal/application/billing"
	"github.com/jhoicas/facturador-sri/internal/domain"
	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	"github.com/jhoicas/facturador-sri/internal/domain/repository"
	domainsri "github.com/jhoicas/facturador-sri/internal/domain/sri"
	"github.com/jhoicas/facturador-sri/internal/infrastructure/filestore"
	infrasri "github.com/jhoicas/facturador-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturador-sri/pkg/sri"
)

// ─── Stubs ────────────────────────────────────────────────────────────────────

type stubSigner struct {
	err   error
	panic bool
}

func (s *stubSigner) Sign(xml []byte) ([]byte, error) {
	if s.panic {
		panic("certificado corrupto")
	}
	if s.err != nil {
		return nil, s.err
	}
	return append(append([]byte{}, xml...), []byte("<!-- firmado -->")...), nil
}

type stubAuthority struct {
	mu       sync.Mutex
	submit   *entity.SubmitResult
	polls    []*entity.AuthorizationResult
	submits  int
	pollings int
}

func (a *stubAuthority) Submit(_ context.Context, _ []byte) *entity.SubmitResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submits++
	return a.submit
}

func (a *stubAuthority) PollAuthorization(_ context.Context, key string, _ infrasri.PollOptions) *entity.AuthorizationResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := a.polls[a.pollings]
	a.pollings++
	if r.State == entity.SRIStateAuthorized && r.AuthorizationNumber == "" {
		r.AuthorizationNumber = key
	}
	return r
}

type memInvoices struct {
	mu        sync.Mutex
	byKey     map[string]*entity.Invoice
	createErr error
	updates   int
}

func newMemInvoices() *memInvoices { return &memInvoices{byKey: map[string]*entity.Invoice{}} }

func (m *memInvoices) Create(_ context.Context, inv *entity.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *inv
	m.byKey[inv.AccessKey] = &cp
	return nil
}

func (m *memInvoices) Update(_ context.Context, inv *entity.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[inv.AccessKey]; !ok {
		return domain.ErrNotFound
	}
	cp := *inv
	m.byKey[inv.AccessKey] = &cp
	m.updates++
	return nil
}

func (m *memInvoices) GetByAccessKey(_ context.Context, key string) (*entity.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byKey[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memInvoices) ListByStatus(_ context.Context, status string, _ int) ([]*entity.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Invoice
	for _, inv := range m.byKey {
		if inv.Status == status {
			out = append(out, inv)
		}
	}
	return out, nil
}

type memLedger struct {
	rows []entity.Invoice
	err  error
}

func (l *memLedger) Append(_ context.Context, inv *entity.Invoice) error {
	if l.err != nil {
		return l.err
	}
	l.rows = append(l.rows, *inv)
	return nil
}

// ─── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	coord     *billing.InvoiceCoordinator
	seq       *filestore.SequenceCounter
	artifacts *filestore.ArtifactStore
	authority *stubAuthority
	signer    *stubSigner
	invoices  *memInvoices
	ledger    *memLedger
}

func testIssuer() entity.Issuer {
	return entity.Issuer{
		RUC:                  "1102762885001",
		LegalName:            "DISTRIBUIDORA EJEMPLO S.A.",
		HeadOfficeAddress:    "Av. Principal 123",
		EstablishmentAddress: "Av. Principal 123",
		Establishment:        "001",
		EmissionPoint:        "001",
		Environment:          sri.EnvironmentTest,
	}
}

type fixtureOptions struct {
	start      int64
	noInvoices bool
}

func newFixture(t *testing.T, authority *stubAuthority) *fixture {
	return newFixtureWith(t, authority, fixtureOptions{start: 41})
}

func newFixtureWith(t *testing.T, authority *stubAuthority, opts fixtureOptions) *fixture {
	t.Helper()
	dir := t.TempDir()
	seq, err := filestore.NewSequenceCounter(dir, opts.start)
	require.NoError(t, err)
	artifacts, err := filestore.NewArtifactStore(dir)
	require.NoError(t, err)

	f := &fixture{
		seq:       seq,
		artifacts: artifacts,
		authority: authority,
		signer:    &stubSigner{},
		invoices:  newMemInvoices(),
		ledger:    &memLedger{},
	}
	var invoices repository.InvoiceRepository
	if !opts.noInvoices {
		invoices = f.invoices
	}
	builder := infrasri.NewXMLBuilderService(domainsri.NewAccessKeyGeneratorWithSource(func() int { return 12345678 }))
	f.coord, err = billing.NewInvoiceCoordinator(testIssuer(), infrasri.PollOptions{MaxAttempts: 3}, billing.CoordinatorDeps{
		Sequence:  seq,
		Builder:   builder,
		Signer:    f.signer,
		Authority: authority,
		Artifacts: artifacts,
		Invoices:  invoices,
		Ledger:    f.ledger,
	}, zerolog.Nop())
	require.NoError(t, err)
	return f
}

func (f *fixture) exists(t *testing.T, kind repository.ArtifactKind, key string) bool {
	t.Helper()
	ok, err := f.artifacts.Exists(context.Background(), kind, key)
	require.NoError(t, err)
	return ok
}

func sale() *billing.EmissionRequest {
	return &billing.EmissionRequest{
		Customer: &entity.Customer{Identification: "1710034065", Name: "Juan Pérez"},
		Items: []*entity.InvoiceDetail{{
			Code: "P001", Description: "Producto",
			Quantity: decimal.RequireFromString("2"), UnitPrice: decimal.RequireFromString("10.00"),
			TaxRateCode: string(sri.IVA15),
		}},
		IssueDate: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func received() *entity.SubmitResult {
	return &entity.SubmitResult{Accepted: true, State: entity.SRIStateReceived}
}

func authorizedAt() *entity.AuthorizationResult {
	at := time.Date(2024, 1, 15, 10, 0, 5, 0, time.UTC)
	return &entity.AuthorizationResult{State: entity.SRIStateAuthorized, AuthorizedAt: &at, Environment: "PRUEBAS", Attempts: 2}
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestEmit_Authorized(t *testing.T) {
	f := newFixture(t, &stubAuthority{submit: received(), polls: []*entity.AuthorizationResult{authorizedAt()}})

	res := f.coord.Emit(context.Background(), sale())

	require.NoError(t, res.Err)
	assert.True(t, res.Authorized())
	assert.Equal(t, "001-001-000000042", res.Number)
	assert.Equal(t, "1501202401110276288500110010010000000421234567817", res.AccessKey)
	assert.Equal(t, res.AccessKey, res.AuthorizationNumber)
	assert.Equal(t, "PRUEBAS", res.Environment)
	assert.True(t, res.Total.Equal(decimal.RequireFromString("23.00")))
	require.NotNil(t, res.AuthorizedAt)

	for _, kind := range []repository.ArtifactKind{repository.ArtifactGenerated, repository.ArtifactSigned, repository.ArtifactAuthorized} {
		assert.True(t, f.exists(t, kind, res.AccessKey), "falta artefacto %s", kind)
	}
	assert.False(t, f.exists(t, repository.ArtifactRejected, res.AccessKey))

	data, err := f.artifacts.Load(context.Background(), repository.ArtifactAuthorized, res.AccessKey)
	require.NoError(t, err)
	doc, err := infrasri.ParseAuthorizedEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, res.AccessKey, doc.AuthorizationNumber)

	rec, err := f.invoices.GetByAccessKey(context.Background(), res.AccessKey)
	require.NoError(t, err)
	assert.Equal(t, entity.EmissionStatusAuthorized, rec.Status)
	assert.Equal(t, int64(42), rec.Sequence)
	require.Len(t, f.ledger.rows, 1)
	assert.Equal(t, entity.EmissionStatusAuthorized, f.ledger.rows[0].Status)
}

func TestEmit_ConsecutiveEmissionsUseNextSequence(t *testing.T) {
	f := newFixture(t, &stubAuthority{
		submit: received(),
		polls:  []*entity.AuthorizationResult{authorizedAt(), authorizedAt()},
	})

	first := f.coord.Emit(context.Background(), sale())
	second := f.coord.Emit(context.Background(), sale())

	assert.Equal(t, "001-001-000000042", first.Number)
	assert.Equal(t, "001-001-000000043", second.Number)
	assert.NotEqual(t, first.AccessKey, second.AccessKey)
}

func TestEmit_RejectedAtSubmit(t *testing.T) {
	msg := entity.SRIMessage{Identifier: "45", Message: "ERROR SECUENCIAL REGISTRADO", Type: "ERROR"}
	f := newFixture(t, &stubAuthority{submit: &entity.SubmitResult{State: entity.SRIStateReturned, Messages: []entity.SRIMessage{msg}}})

	res := f.coord.Emit(context.Background(), sale())

	assert.Equal(t, entity.EmissionStatusRejectedAtSubmit, res.Status)
	assert.Equal(t, entity.EmissionStatusSigned, res.Stage)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "ERROR SECUENCIAL REGISTRADO", res.Messages[0].Message)

	var rejected *domain.SubmissionRejected
	require.True(t, errors.As(res.Err, &rejected))
	assert.Equal(t, res.AccessKey, rejected.AccessKey)
	assert.ErrorIs(t, res.Err, domain.ErrSubmissionRejected)

	signed, err := f.artifacts.Load(context.Background(), repository.ArtifactSigned, res.AccessKey)
	require.NoError(t, err)
	copyRejected, err := f.artifacts.Load(context.Background(), repository.ArtifactRejected, res.AccessKey)
	require.NoError(t, err)
	assert.Equal(t, signed, copyRejected)
	assert.Equal(t, 0, f.authority.pollings)
}

func TestEmit_RejectedAtAuthorization(t *testing.T) {
	f := newFixture(t, &stubAuthority{submit: received(), polls: []*entity.AuthorizationResult{{
		State:    entity.SRIStateNotAuthorized,
		Messages: []entity.SRIMessage{{Identifier: "39", Message: "FIRMA INVALIDA", Type: "ERROR"}},
	}}})

	res := f.coord.Emit(context.Background(), sale())

	assert.Equal(t, entity.EmissionStatusRejectedAtAuth, res.Status)
	assert.ErrorIs(t, res.Err, domain.ErrAuthorizationRejected)
	assert.True(t, f.exists(t, repository.ArtifactRejected, res.AccessKey))
	assert.False(t, f.exists(t, repository.ArtifactAuthorized, res.AccessKey))
}

func TestEmit_TimedOutThenRecheck(t *testing.T) {
	f := newFixture(t, &stubAuthority{submit: received(), polls: []*entity.AuthorizationResult{
		{State: entity.SRIStateTimeout, Attempts: 3},
		authorizedAt(),
	}})

	res := f.coord.Emit(context.Background(), sale())
	assert.Equal(t, entity.EmissionStatusTimedOut, res.Status)
	var te *domain.TimeoutError
	require.True(t, errors.As(res.Err, &te))
	assert.Equal(t, 3, te.Attempts)
	assert.False(t, f.exists(t, repository.ArtifactAuthorized, res.AccessKey))

	again := f.coord.RecheckAuthorization(context.Background(), res.AccessKey)
	require.NoError(t, again.Err)
	assert.True(t, again.Authorized())
	assert.Equal(t, "001-001-000000042", again.Number)
	assert.True(t, f.exists(t, repository.ArtifactAuthorized, res.AccessKey))
	assert.Equal(t, 1, f.authority.submits, "la reconsulta no reenvía el comprobante")

	rec, err := f.invoices.GetByAccessKey(context.Background(), res.AccessKey)
	require.NoError(t, err)
	assert.Equal(t, entity.EmissionStatusAuthorized, rec.Status)

	// Ya autorizada: responde desde la copia guardada sin consultar al SRI.
	third := f.coord.RecheckAuthorization(context.Background(), res.AccessKey)
	assert.True(t, third.Authorized())
	assert.Equal(t, 2, f.authority.pollings)
}

func TestRecheckPending_ResolvesTimedOut(t *testing.T) {
	f := newFixture(t, &stubAuthority{submit: received(), polls: []*entity.AuthorizationResult{
		{State: entity.SRIStateTimeout, Attempts: 3},
		authorizedAt(),
	}})
	first := f.coord.Emit(context.Background(), sale())
	require.Equal(t, entity.EmissionStatusTimedOut, first.Status)

	results, err := f.coord.RecheckPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Authorized())
	assert.Equal(t, first.AccessKey, results[0].AccessKey)

	again, err := f.coord.RecheckPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestRecheck_RejectedAtSubmitConflict(t *testing.T) {
	f := newFixture(t, &stubAuthority{submit: &entity.SubmitResult{State: entity.SRIStateReturned}})
	res := f.coord.Emit(context.Background(), sale())
	require.Equal(t, entity.EmissionStatusRejectedAtSubmit, res.Status)

	again := f.coord.RecheckAuthorization(context.Background(), res.AccessKey)
	assert.ErrorIs(t, again.Err, domain.ErrConflict)
	assert.Equal(t, 0, f.authority.pollings)
}

func TestRecheck_RejectedAtSubmitConflictWithoutRegistry(t *testing.T) {
	f := newFixtureWith(t, &stubAuthority{submit: &entity.SubmitResult{State: entity.SRIStateReturned}},
		fixtureOptions{start: 41, noInvoices: true})
	res := f.coord.Emit(context.Background(), sale())
	require.Equal(t, entity.EmissionStatusRejectedAtSubmit, res.Status)

	again := f.coord.RecheckAuthorization(context.Background(), res.AccessKey)
	assert.Equal(t, entity.EmissionStatusRejectedAtSubmit, again.Status)
	assert.ErrorIs(t, again.Err, domain.ErrConflict)
	assert.Equal(t, "001-001-000000042", again.Number)
	assert.Equal(t, 0, f.authority.pollings)
}

func TestRecheck_RejectedAtAuthorizationWithoutRegistryPollsAgain(t *testing.T) {
	notAuthorized := &entity.AuthorizationResult{
		State:    entity.SRIStateNotAuthorized,
		Messages: []entity.SRIMessage{{Identifier: "39", Message: "FIRMA INVALIDA", Type: "ERROR"}},
	}
	f := newFixtureWith(t, &stubAuthority{submit: received(), polls: []*entity.AuthorizationResult{notAuthorized, notAuthorized}},
		fixtureOptions{start: 41, noInvoices: true})
	res := f.coord.Emit(context.Background(), sale())
	require.Equal(t, entity.EmissionStatusRejectedAtAuth, res.Status)

	data, err := f.artifacts.Load(context.Background(), repository.ArtifactRejected, res.AccessKey)
	require.NoError(t, err)
	doc, err := infrasri.ParseAuthorizedEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, entity.SRIStateNotAuthorized, doc.State)

	again := f.coord.RecheckAuthorization(context.Background(), res.AccessKey)
	assert.Equal(t, entity.EmissionStatusRejectedAtAuth, again.Status)
	assert.NotErrorIs(t, again.Err, domain.ErrConflict)
	assert.Equal(t, 2, f.authority.pollings)
}

func TestRecheck_WithoutRegistryUpdatesLedger(t *testing.T) {
	f := newFixtureWith(t, &stubAuthority{submit: received(), polls: []*entity.AuthorizationResult{
		{State: entity.SRIStateTimeout, Attempts: 3},
		authorizedAt(),
	}}, fixtureOptions{start: 41, noInvoices: true})

	res := f.coord.Emit(context.Background(), sale())
	require.Equal(t, entity.EmissionStatusTimedOut, res.Status)
	require.Len(t, f.ledger.rows, 1)

	again := f.coord.RecheckAuthorization(context.Background(), res.AccessKey)
	require.NoError(t, again.Err)
	assert.True(t, again.Authorized())
	assert.True(t, again.Total.Equal(decimal.RequireFromString("23.00")))

	require.Len(t, f.ledger.rows, 2)
	row := f.ledger.rows[1]
	assert.Equal(t, entity.EmissionStatusAuthorized, row.Status)
	assert.Equal(t, res.AccessKey, row.AccessKey)
	assert.Equal(t, "001-001-000000042", row.Number)
	assert.Equal(t, int64(42), row.Sequence)
	assert.Equal(t, "1710034065", row.CustomerID)
	assert.True(t, row.GrandTotal.Equal(decimal.RequireFromString("23.00")))
	assert.True(t, row.TaxTotal.Equal(decimal.RequireFromString("3.00")))
	assert.Equal(t, res.AccessKey, row.AuthorizationNumber)
}

func TestRecheck_UnknownKey(t *testing.T) {
	f := newFixture(t, &stubAuthority{})

	res := f.coord.RecheckAuthorization(context.Background(), "123")
	assert.ErrorIs(t, res.Err, domain.ErrValidation)

	res = f.coord.RecheckAuthorization(context.Background(), "1501202401110276288500110010010000000421234567817")
	assert.Equal(t, entity.EmissionStatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, domain.ErrNotFound)
}

func TestEmit_SigningFailureKeepsSequence(t *testing.T) {
	f := newFixture(t, &stubAuthority{})
	f.signer.err = errors.New("clave privada no disponible")

	res := f.coord.Emit(context.Background(), sale())

	assert.Equal(t, entity.EmissionStatusFailed, res.Status)
	assert.Equal(t, entity.EmissionStatusBuilt, res.Stage)
	assert.ErrorIs(t, res.Err, domain.ErrSigning)
	assert.True(t, f.exists(t, repository.ArtifactGenerated, res.AccessKey))
	assert.False(t, f.exists(t, repository.ArtifactSigned, res.AccessKey))

	cur, err := f.seq.Current(context.Background(), f.coord.Series())
	require.NoError(t, err)
	assert.Equal(t, int64(42), cur)
}

func TestEmit_SubmitTransportError(t *testing.T) {
	f := newFixture(t, &stubAuthority{submit: &entity.SubmitResult{
		State:    entity.SRIStateError,
		Messages: []entity.SRIMessage{{Message: "Error al enviar comprobante: timeout", Type: "ERROR"}},
	}})

	res := f.coord.Emit(context.Background(), sale())

	assert.Equal(t, entity.EmissionStatusFailed, res.Status)
	assert.Equal(t, entity.EmissionStatusSigned, res.Stage)
	assert.ErrorIs(t, res.Err, domain.ErrTransport)
	assert.False(t, f.exists(t, repository.ArtifactRejected, res.AccessKey))
}

func TestEmit_AuthorizationError(t *testing.T) {
	f := newFixture(t, &stubAuthority{submit: received(), polls: []*entity.AuthorizationResult{{
		State:    entity.SRIStateError,
		Messages: []entity.SRIMessage{{Message: "SOAP Fault [soap:Client]: clave inválida"}},
	}}})

	res := f.coord.Emit(context.Background(), sale())
	assert.Equal(t, entity.EmissionStatusFailed, res.Status)
	assert.Equal(t, entity.EmissionStatusSubmitted, res.Stage)
	assert.ErrorIs(t, res.Err, domain.ErrTransport)
}

func TestEmit_PanicIsRecovered(t *testing.T) {
	f := newFixture(t, &stubAuthority{})
	f.signer.panic = true

	var res *billing.EmissionResult
	require.NotPanics(t, func() { res = f.coord.Emit(context.Background(), sale()) })

	assert.Equal(t, entity.EmissionStatusFailed, res.Status)
	assert.True(t, res.Critical)
	assert.Empty(t, res.AccessKey)
	assert.Empty(t, res.Number)
	assert.Error(t, res.Err)
}

func TestEmit_InvalidRequestDoesNotConsumeSequence(t *testing.T) {
	f := newFixture(t, &stubAuthority{})

	req := sale()
	req.Items = nil
	res := f.coord.Emit(context.Background(), req)
	assert.Equal(t, entity.EmissionStatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, domain.ErrValidation)

	cur, err := f.seq.Current(context.Background(), f.coord.Series())
	require.NoError(t, err)
	assert.Equal(t, int64(41), cur)
}

func TestEmit_InvalidCodesDoNotConsumeSequence(t *testing.T) {
	cases := map[string]func(*billing.EmissionRequest){
		"tarifa IVA":    func(r *billing.EmissionRequest) { r.Items[0].TaxRateCode = "9" },
		"forma de pago": func(r *billing.EmissionRequest) { r.PaymentCode = "99" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, &stubAuthority{})
			req := sale()
			mutate(req)

			res := f.coord.Emit(context.Background(), req)
			assert.Equal(t, entity.EmissionStatusFailed, res.Status)
			assert.Equal(t, entity.EmissionStatusNew, res.Stage)
			var ve *domain.ValidationError
			assert.True(t, errors.As(res.Err, &ve))

			cur, err := f.seq.Current(context.Background(), f.coord.Series())
			require.NoError(t, err)
			assert.Equal(t, int64(41), cur)

			ok := f.coord.Emit(context.Background(), sale())
			assert.Equal(t, "001-001-000000042", ok.Number)
		})
	}
}

func TestEmit_BuildFailureAfterSequence(t *testing.T) {
	f := newFixtureWith(t, &stubAuthority{}, fixtureOptions{start: 999999999})

	res := f.coord.Emit(context.Background(), sale())
	assert.Equal(t, entity.EmissionStatusFailed, res.Status)
	assert.Equal(t, entity.EmissionStatusSequenced, res.Stage)
	var ve *domain.ValidationError
	require.True(t, errors.As(res.Err, &ve))
	assert.Equal(t, "secuencial", ve.Field)
	assert.Empty(t, res.AccessKey)
}

func TestSeries_IncludesRUC(t *testing.T) {
	f := newFixture(t, &stubAuthority{})
	assert.Equal(t, "1102762885001-001001", f.coord.Series())
}

func TestEmit_BookkeepingFailuresAreNotFatal(t *testing.T) {
	f := newFixture(t, &stubAuthority{submit: received(), polls: []*entity.AuthorizationResult{authorizedAt()}})
	f.invoices.createErr = errors.New("db caída")
	f.ledger.err = errors.New("libro bloqueado")

	res := f.coord.Emit(context.Background(), sale())
	require.NoError(t, res.Err)
	assert.True(t, res.Authorized())
	assert.Equal(t, 0, f.invoices.updates)
}

func TestFind(t *testing.T) {
	f := newFixture(t, &stubAuthority{submit: received(), polls: []*entity.AuthorizationResult{authorizedAt()}})
	res := f.coord.Emit(context.Background(), sale())

	rec, err := f.coord.Find(context.Background(), res.AccessKey)
	require.NoError(t, err)
	assert.Equal(t, "001-001-000000042", rec.Number)

	_, err = f.coord.Find(context.Background(), "1501202401110276288500110010010000000991234567818")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewInvoiceCoordinator_Validation(t *testing.T) {
	_, err := billing.NewInvoiceCoordinator(testIssuer(), infrasri.DefaultPollOptions(), billing.CoordinatorDeps{}, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	dir := t.TempDir()
	seq, _ := filestore.NewSequenceCounter(dir, 0)
	store, _ := filestore.NewArtifactStore(dir)
	deps := billing.CoordinatorDeps{
		Sequence: seq, Builder: infrasri.NewXMLBuilderService(nil),
		Signer: &stubSigner{}, Authority: &stubAuthority{}, Artifacts: store,
	}
	bad := testIssuer()
	bad.RUC = "123"
	_, err = billing.NewInvoiceCoordinator(bad, infrasri.DefaultPollOptions(), deps, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	bad = testIssuer()
	bad.Environment = "3"
	_, err = billing.NewInvoiceCoordinator(bad, infrasri.DefaultPollOptions(), deps, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestDecodeMessages(t *testing.T) {
	assert.Nil(t, billing.DecodeMessages(""))
	assert.Nil(t, billing.DecodeMessages("{roto"))
	msgs := billing.DecodeMessages(`[{"identificador":"45","mensaje":"ERROR","tipo":"ERROR"}]`)
	require.Len(t, msgs, 1)
	assert.Equal(t, "45", msgs[0].Identifier)
}

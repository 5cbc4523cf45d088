package pdf_test

import (
	"context"
	"testing"
	"time"

	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	domainsri "github.com/jhoicas/facturador-sri/internal/domain/sri"
	infrapdf "github.com/jhoicas/facturador-sri/internal/infrastructure/pdf"
	infrasri "github.com/jhoicas/facturador-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturador-sri/pkg/sri"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builtInvoice(t *testing.T) *infrasri.InvoiceView {
	t.Helper()
	b := infrasri.NewXMLBuilderService(domainsri.NewAccessKeyGeneratorWithSource(func() int { return 12345678 }))
	doc, err := b.Build(&infrasri.InvoiceBuildContext{
		Issuer: &entity.Issuer{
			RUC: "1102762885001", LegalName: "DISTRIBUIDORA EJEMPLO S.A.",
			HeadOfficeAddress: "Av. Principal 123", EstablishmentAddress: "Av. Principal 123",
			Establishment: "001", EmissionPoint: "001", Environment: sri.EnvironmentTest,
		},
		Customer: &entity.Customer{Identification: "1710034065", Name: "Juan Pérez"},
		Details: []*entity.InvoiceDetail{{
			Code: "P001", Description: "Café molido 500g",
			Quantity: decimal.RequireFromString("2.5"), UnitPrice: decimal.RequireFromString("4.00"),
			TaxRateCode: string(sri.IVA15),
		}},
		Sequence:       42,
		IssueDate:      time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		AdditionalInfo: []infrasri.AdditionalField{{Name: "Vendedor", Value: "Ana"}},
	})
	require.NoError(t, err)
	v, err := infrasri.ParseInvoice(doc.XML)
	require.NoError(t, err)
	return v
}

func TestRender_PendingAuthorization(t *testing.T) {
	pdf, err := infrapdf.NewRIDEGenerator().Render(context.Background(), builtInvoice(t), nil)
	require.NoError(t, err)
	assert.True(t, len(pdf) > 4)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestRender_Authorized(t *testing.T) {
	v := builtInvoice(t)
	at := time.Date(2024, 1, 15, 10, 5, 0, 0, time.UTC)
	pdf, err := infrapdf.NewRIDEGenerator().Render(context.Background(), v, &infrasri.AuthorizedDocument{
		State:               entity.SRIStateAuthorized,
		AuthorizationNumber: v.AccessKey,
		AuthorizedAt:        &at,
	})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestRender_NilInvoice(t *testing.T) {
	_, err := infrapdf.NewRIDEGenerator().Render(context.Background(), nil, nil)
	assert.Error(t, err)
}

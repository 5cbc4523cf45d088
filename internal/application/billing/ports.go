package billing

import (
	"context"

	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	infrasri "github.com/jhoicas/facturador-sri/internal/infrastructure/sri"
)

// DocumentBuilder construye el XML factura sin firma (XMLBuilderService).
type DocumentBuilder interface {
	// Validate revisa los datos sin consumir secuencial.
	Validate(ctx *infrasri.InvoiceBuildContext) error
	Build(ctx *infrasri.InvoiceBuildContext) (*infrasri.BuiltDocument, error)
}

// Authority envía el comprobante a recepción y consulta su autorización (AuthorityClient).
type Authority interface {
	Submit(ctx context.Context, signed []byte) *entity.SubmitResult
	PollAuthorization(ctx context.Context, accessKey string, opts infrasri.PollOptions) *entity.AuthorizationResult
}

// EmissionLedger libro de emisiones (xlsx); Append inserta o actualiza la fila de la clave de acceso.
type EmissionLedger interface {
	Append(ctx context.Context, invoice *entity.Invoice) error
}

// RIDERenderer genera el PDF del RIDE.
type RIDERenderer interface {
	Render(ctx context.Context, invoice *infrasri.InvoiceView, auth *infrasri.AuthorizedDocument) ([]byte, error)
}

package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/facturador-sri/internal/domain"
	"github.com/jhoicas/facturador-sri/internal/domain/repository"
	domainsri "github.com/jhoicas/facturador-sri/internal/domain/sri"
	infrasri "github.com/jhoicas/facturador-sri/internal/infrastructure/sri"
)

// RIDEUseCase genera el RIDE desde los XML guardados: la copia autorizada si
// existe, si no la firmada (marcada como pendiente de autorización).
type RIDEUseCase struct {
	artifacts repository.ArtifactStore
	renderer  RIDERenderer
}

// NewRIDEUseCase construye el caso de uso.
func NewRIDEUseCase(artifacts repository.ArtifactStore, renderer RIDERenderer) *RIDEUseCase {
	return &RIDEUseCase{artifacts: artifacts, renderer: renderer}
}

// Download devuelve el PDF del RIDE de la clave de acceso.
func (uc *RIDEUseCase) Download(ctx context.Context, accessKey string) ([]byte, error) {
	if err := domainsri.ValidateAccessKey(accessKey); err != nil {
		return nil, err
	}

	var auth *infrasri.AuthorizedDocument
	comprobante, err := uc.artifacts.Load(ctx, repository.ArtifactAuthorized, accessKey)
	switch {
	case err == nil:
		auth, err = infrasri.ParseAuthorizedEnvelope(comprobante)
		if err != nil {
			return nil, fmt.Errorf("ride: %w", err)
		}
		comprobante = auth.Comprobante
	case errors.Is(err, domain.ErrNotFound):
		comprobante, err = uc.artifacts.Load(ctx, repository.ArtifactSigned, accessKey)
		if err != nil {
			return nil, fmt.Errorf("ride: %w", err)
		}
	default:
		return nil, fmt.Errorf("ride: %w", err)
	}

	view, err := infrasri.ParseInvoice(comprobante)
	if err != nil {
		return nil, fmt.Errorf("ride: %w", err)
	}
	return uc.renderer.Render(ctx, view, auth)
}

package repository

import "context"

// ArtifactKind carpeta lógica de un XML emitido.
type ArtifactKind string

const (
	ArtifactGenerated  ArtifactKind = "generados"
	ArtifactSigned     ArtifactKind = "firmados"
	ArtifactAuthorized ArtifactKind = "autorizados"
	ArtifactRejected   ArtifactKind = "rechazados"
)

// ArtifactKinds todas las carpetas en orden del flujo.
var ArtifactKinds = []ArtifactKind{ArtifactGenerated, ArtifactSigned, ArtifactAuthorized, ArtifactRejected}

// ArtifactStore guarda los XML de cada etapa indexados por clave de acceso.
// Los artefactos no se borran.
type ArtifactStore interface {
	Save(ctx context.Context, kind ArtifactKind, accessKey string, data []byte) error
	Load(ctx context.Context, kind ArtifactKind, accessKey string) ([]byte, error)
	Exists(ctx context.Context, kind ArtifactKind, accessKey string) (bool, error)
}

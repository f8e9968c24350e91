package gasto

import (
	"io"
	"time"
)

// Gasto is an expense. EmpresaID, Categoria, TipoDocumento and ProyectoID hold
// row ids of the referenced lists once the expense has been stored; on input they
// may also carry business keys, which the store resolves.
type Gasto struct {
	ID                      string    `json:"id"`
	Fecha                   time.Time `json:"fecha"`
	EmpresaID               string    `json:"empresaId"`
	Categoria               string    `json:"categoria"`
	TipoDocumento           string    `json:"tipoDocumento"`
	NumeroDocumento         string    `json:"numeroDocumento"`
	Monto                   int64     `json:"monto"` // whole pesos
	Detalle                 string    `json:"detalle,omitempty"`
	ProyectoID              string    `json:"proyectoId,omitempty"`
	ComentarioTipoDocumento string    `json:"comentarioTipoDocumento,omitempty"`
	ArchivosAdjuntos        []Adjunto `json:"archivosAdjuntos,omitempty"`
	SolicitanteID           string    `json:"solicitanteId,omitempty"`
	CreatedAt               time.Time `json:"createdAt"`
}

func (g Gasto) EntityID() string { return g.ID }

// Adjunto is a file attached to an expense. Contenido is set while the file is
// waiting to be uploaded and nil once it lives in the document library.
type Adjunto struct {
	Nombre    string    `json:"nombre"`
	URL       string    `json:"url"`
	Tipo      string    `json:"tipo"`
	Contenido io.Reader `json:"-"`
}

func (a Adjunto) Pending() bool { return a.Contenido != nil }

// Patch is a sparse update. Nil fields are left untouched.
type Patch struct {
	Fecha                   *time.Time `json:"fecha,omitempty"`
	EmpresaID               *string    `json:"empresaId,omitempty"`
	Categoria               *string    `json:"categoria,omitempty"`
	TipoDocumento           *string    `json:"tipoDocumento,omitempty"`
	NumeroDocumento         *string    `json:"numeroDocumento,omitempty"`
	Monto                   *int64     `json:"monto,omitempty"`
	Detalle                 *string    `json:"detalle,omitempty"`
	ProyectoID              *string    `json:"proyectoId,omitempty"`
	ComentarioTipoDocumento *string    `json:"comentarioTipoDocumento,omitempty"`
	ArchivosAdjuntos        *[]Adjunto `json:"archivosAdjuntos,omitempty"`
}

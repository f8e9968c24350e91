package store

import (
	"encoding/json"
	"strings"

	"github.com/MrJamesThe3rd/gastos/internal/gasto"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
)

type mapper struct{ list string }

func (m mapper) Spec() sharepoint.ListSpec {
	return sharepoint.ListSpec{
		Name: m.list,
		Fields: []sharepoint.FieldSpec{
			{Name: "titulo", Candidates: []string{"Title"}},
			{Name: "fecha", Candidates: []string{"Fecha", "FechaGasto", "Fecha Documento"}, Required: true},
			{Name: "empresa", Candidates: []string{"Empresa", "EmpresaId", "Proveedor"}, Required: true},
			{Name: "categoria", Candidates: []string{"Categoría", "Categoria", "CategoriaId"}, Required: true},
			{Name: "tipoDocumento", Candidates: []string{"Tipo Documento", "TipoDocumento", "Tipo de Documento"}, Required: true},
			{Name: "numeroDocumento", Candidates: []string{"Número Documento", "NumeroDocumento", "N° Documento", "Folio"}},
			{Name: "monto", Candidates: []string{"Monto", "MontoTotal", "Monto Total"}, Required: true},
			{Name: "detalle", Candidates: []string{"Detalle", "Descripción", "Descripcion"}},
			{Name: "proyecto", Candidates: []string{"Proyecto", "ProyectoId"}},
			{Name: "comentario", Candidates: []string{"Comentario Tipo Documento", "ComentarioTipoDocumento"}},
			{Name: "adjuntos", Candidates: []string{"Archivos Adjuntos", "ArchivosAdjuntos", "Adjuntos"}},
			{Name: "solicitante", Candidates: []string{"Solicitante", "Colaborador", "SolicitanteId"}},
		},
	}
}

func (mapper) Decode(r sharepoint.Record) (gasto.Gasto, error) {
	return gasto.Gasto{
		ID:                      r.ID,
		Fecha:                   r.Time("fecha"),
		EmpresaID:               r.String("empresa"),
		Categoria:               r.String("categoria"),
		TipoDocumento:           r.String("tipoDocumento"),
		NumeroDocumento:         r.String("numeroDocumento"),
		Monto:                   r.Int("monto"),
		Detalle:                 r.String("detalle"),
		ProyectoID:              r.String("proyecto"),
		ComentarioTipoDocumento: r.String("comentario"),
		ArchivosAdjuntos:        decodeAdjuntos(r.String("adjuntos")),
		SolicitanteID:           r.String("solicitante"),
		CreatedAt:               r.CreatedAt,
	}, nil
}

func (mapper) Encode(g gasto.Gasto, f *sharepoint.Fields) {
	f.Set("titulo", titulo(g.NumeroDocumento, g.Detalle))
	f.Set("fecha", g.Fecha)
	f.Set("empresa", g.EmpresaID)
	f.Set("categoria", g.Categoria)
	f.Set("tipoDocumento", g.TipoDocumento)
	f.Set("numeroDocumento", g.NumeroDocumento)
	f.Set("monto", g.Monto)

	if g.Detalle != "" {
		f.Set("detalle", g.Detalle)
	}

	if g.ProyectoID != "" {
		f.Set("proyecto", g.ProyectoID)
	}

	if g.ComentarioTipoDocumento != "" {
		f.Set("comentario", g.ComentarioTipoDocumento)
	}

	if len(g.ArchivosAdjuntos) > 0 {
		f.Set("adjuntos", encodeAdjuntos(g.ArchivosAdjuntos))
	}

	if g.SolicitanteID != "" {
		f.Set("solicitante", g.SolicitanteID)
	}
}

func (mapper) EncodePatch(p gasto.Patch, f *sharepoint.Fields) {
	if p.Fecha != nil {
		f.Set("fecha", *p.Fecha)
	}

	setPtr(f, "empresa", p.EmpresaID)
	setPtr(f, "categoria", p.Categoria)
	setPtr(f, "tipoDocumento", p.TipoDocumento)

	if p.NumeroDocumento != nil {
		f.Set("titulo", *p.NumeroDocumento)
		f.Set("numeroDocumento", *p.NumeroDocumento)
	}

	if p.Monto != nil {
		f.Set("monto", *p.Monto)
	}

	setPtr(f, "detalle", p.Detalle)
	setPtr(f, "proyecto", p.ProyectoID)
	setPtr(f, "comentario", p.ComentarioTipoDocumento)

	if p.ArchivosAdjuntos != nil {
		f.Set("adjuntos", encodeAdjuntos(*p.ArchivosAdjuntos))
	}
}

func setPtr(f *sharepoint.Fields, field string, v *string) {
	if v != nil {
		f.Set(field, *v)
	}
}

func titulo(numero, detalle string) string {
	if numero != "" {
		return numero
	}

	return detalle
}

type adjuntoJSON struct {
	Nombre string `json:"nombre"`
	URL    string `json:"url"`
	Tipo   string `json:"tipo,omitempty"`
}

// Attachments are kept in a multi-line text column as a JSON array. Only
// uploaded files are written.
func encodeAdjuntos(as []gasto.Adjunto) string {
	out := make([]adjuntoJSON, 0, len(as))

	for _, a := range as {
		if a.URL == "" {
			continue
		}

		out = append(out, adjuntoJSON{Nombre: a.Nombre, URL: a.URL, Tipo: a.Tipo})
	}

	raw, _ := json.Marshal(out)

	return string(raw)
}

// decodeAdjuntos also accepts one URL per line, as rows edited by hand carry.
func decodeAdjuntos(s string) []gasto.Adjunto {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var in []adjuntoJSON
	if err := json.Unmarshal([]byte(s), &in); err == nil {
		if len(in) == 0 {
			return nil
		}

		out := make([]gasto.Adjunto, 0, len(in))
		for _, a := range in {
			out = append(out, gasto.Adjunto{Nombre: a.Nombre, URL: a.URL, Tipo: a.Tipo})
		}

		return out
	}

	var out []gasto.Adjunto

	for line := range strings.Lines(s) {
		u := strings.TrimSpace(line)
		if u == "" {
			continue
		}

		out = append(out, gasto.Adjunto{Nombre: u[strings.LastIndex(u, "/")+1:], URL: u})
	}

	return out
}

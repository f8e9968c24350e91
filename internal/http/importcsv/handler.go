// Package importcsv serves the upload of purchase registers.
package importcsv

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/gastos/internal/gasto"
	"github.com/MrJamesThe3rd/gastos/internal/http/respond"
	"github.com/MrJamesThe3rd/gastos/internal/http/session"
	"github.com/MrJamesThe3rd/gastos/internal/importer"
)

const maxRegisterSize = 10 << 20

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/{source}", h.importRegister)
	r.Post("/{source}/preview", h.preview)
}

type compraResponse struct {
	Line          int    `json:"line"`
	Fecha         string `json:"fecha"`
	RUT           string `json:"rut"`
	RazonSocial   string `json:"razonSocial"`
	Emisor        string `json:"emisor"`
	TipoDocumento string `json:"tipoDocumento"`
	Folio         string `json:"folio"`
	Monto         int64  `json:"monto"`
	NotaCredito   bool   `json:"notaCredito"`
}

type previewResponse struct {
	Compras []compraResponse `json:"compras"`
}

func toCompraResponse(c importer.Compra) compraResponse {
	return compraResponse{
		Line:          c.Line,
		Fecha:         c.Fecha.Format("2006-01-02"),
		RUT:           c.RUT,
		RazonSocial:   c.RazonSocial,
		Emisor:        string(c.Emisor),
		TipoDocumento: c.TipoDocumento,
		Folio:         c.Folio,
		Monto:         c.Monto,
		NotaCredito:   c.NotaCredito,
	}
}

// preview parses the register without writing anything.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxRegisterSize); err != nil {
		respond.BadRequest(w, "failed to parse form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.BadRequest(w, "failed to get file: "+err.Error())
		return
	}
	defer file.Close()

	svc := session.Workspace(r.Context()).Import

	compras, err := svc.Parse(importer.Source(chi.URLParam(r, "source")), file)
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}

	resp := previewResponse{Compras: make([]compraResponse, 0, len(compras))}
	for _, c := range compras {
		resp.Compras = append(resp.Compras, toCompraResponse(c))
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) importRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxRegisterSize); err != nil {
		respond.BadRequest(w, "failed to parse form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.BadRequest(w, "failed to get file: "+err.Error())
		return
	}
	defer file.Close()

	opts := importer.Options{
		Categoria:  r.FormValue("categoria"),
		ProyectoID: r.FormValue("proyectoId"),
	}

	if opts.Categoria == "" {
		respond.BadRequest(w, "categoria is required")
		return
	}

	svc := session.Workspace(r.Context()).Import

	res, err := svc.Import(r.Context(), importer.Source(chi.URLParam(r, "source")), file, opts)
	if err != nil {
		if errors.Is(err, importer.ErrInvalidRegister) {
			respond.BadRequest(w, err.Error())
			return
		}

		respond.Error(w, err)

		return
	}

	if res.Created == nil {
		res.Created = []gasto.Gasto{}
	}

	if res.Skipped == nil {
		res.Skipped = []importer.Skipped{}
	}

	respond.JSON(w, http.StatusOK, res)
}

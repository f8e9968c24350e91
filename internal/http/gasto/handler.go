// Package gasto serves the expense endpoints. Creating and updating accept either
// a JSON body or a multipart form with the expense in the "gasto" field and its
// files in "archivos".
package gasto

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/gastos/internal/attachment"
	"github.com/MrJamesThe3rd/gastos/internal/gasto"
	"github.com/MrJamesThe3rd/gastos/internal/http/respond"
	"github.com/MrJamesThe3rd/gastos/internal/http/session"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
)

const maxUploadMemory = 32 << 20

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/attachments/pending", h.pending)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

// partialResponse is returned with 207 when the row was saved but some files were not.
type partialResponse struct {
	Gasto  gasto.Gasto `json:"gasto"`
	Failed []string    `json:"failed"`
	Error  string      `json:"error"`
}

type sagaResponse struct {
	ID        string    `json:"id"`
	List      string    `json:"list"`
	ItemID    string    `json:"itemId"`
	State     string    `json:"state"`
	Pending   []string  `json:"pending"`
	Failed    []string  `json:"failed,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := session.Workspace(r.Context()).Gastos.GetAll(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	if items == nil {
		items = []gasto.Gasto{}
	}

	respond.JSON(w, http.StatusOK, items)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var g gasto.Gasto

	files, err := decode(r, &g)
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	defer closeAll(files)

	g.ArchivosAdjuntos = append(g.ArchivosAdjuntos, adjuntos(files)...)

	svc := session.Workspace(r.Context()).Gastos

	nombre, known, err := svc.TipoNombre(r.Context(), g.TipoDocumento)
	if err != nil {
		respond.Error(w, err)
		return
	}

	if !known {
		nombre = g.TipoDocumento
	}

	if err := gasto.Validate(g, nombre); err != nil {
		respond.Error(w, err)
		return
	}

	created, err := svc.Create(r.Context(), g)
	if err != nil {
		writeSaveError(w, created, err)
		return
	}

	respond.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var p gasto.Patch

	files, err := decode(r, &p)
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	defer closeAll(files)

	svc := session.Workspace(r.Context()).Gastos

	if len(files) > 0 {
		// new files are added to the ones already linked unless the patch replaces the list
		if p.ArchivosAdjuntos == nil {
			all, err := svc.GetAll(r.Context())
			if err != nil {
				respond.Error(w, err)
				return
			}

			i := slices.IndexFunc(all, func(g gasto.Gasto) bool { return g.ID == id })
			if i < 0 {
				respond.Error(w, sharepoint.WithMessage(sharepoint.ErrRemoteRejected, "gasto %s not found", id))
				return
			}

			current := slices.Clone(all[i].ArchivosAdjuntos)
			p.ArchivosAdjuntos = &current
		}

		merged := append(*p.ArchivosAdjuntos, adjuntos(files)...)
		p.ArchivosAdjuntos = &merged
	}

	updated, err := svc.Update(r.Context(), id, p)
	if err != nil {
		writeSaveError(w, updated, err)
		return
	}

	respond.JSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := session.Workspace(r.Context()).Gastos.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	sagas, err := session.Workspace(r.Context()).GastoStore.Pending(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	resp := make([]sagaResponse, 0, len(sagas))
	for _, s := range sagas {
		resp = append(resp, toSagaResponse(s))
	}

	respond.JSON(w, http.StatusOK, resp)
}

func toSagaResponse(s attachment.Saga) sagaResponse {
	return sagaResponse{
		ID:        s.ID.String(),
		List:      s.List,
		ItemID:    s.ItemID,
		State:     string(s.State),
		Pending:   s.Outstanding(),
		Failed:    s.Failed,
		Error:     s.LastError,
		UpdatedAt: s.UpdatedAt,
	}
}

func writeSaveError(w http.ResponseWriter, saved gasto.Gasto, err error) {
	var partial *sharepoint.PartialAttachmentError
	if errors.As(err, &partial) {
		respond.JSON(w, http.StatusMultiStatus, partialResponse{Gasto: saved, Failed: partial.Failed, Error: err.Error()})
		return
	}

	respond.Error(w, err)
}

// decode reads the request into v and returns the uploaded files, which the
// caller closes.
func decode(r *http.Request, v any) ([]upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			return nil, err
		}

		return nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, fmt.Errorf("parsing form: %w", err)
	}

	if raw := r.FormValue("gasto"); raw != "" {
		if err := json.Unmarshal([]byte(raw), v); err != nil {
			return nil, fmt.Errorf("decoding gasto field: %w", err)
		}
	}

	var files []upload

	for _, fh := range r.MultipartForm.File["archivos"] {
		f, err := fh.Open()
		if err != nil {
			closeAll(files)
			return nil, fmt.Errorf("opening %s: %w", fh.Filename, err)
		}

		files = append(files, upload{header: fh, file: f})
	}

	return files, nil
}

type upload struct {
	header *multipart.FileHeader
	file   multipart.File
}

func adjuntos(files []upload) []gasto.Adjunto {
	out := make([]gasto.Adjunto, 0, len(files))

	for _, u := range files {
		tipo := u.header.Header.Get("Content-Type")
		if tipo == "application/octet-stream" {
			// let the store sniff it
			tipo = ""
		}

		out = append(out, gasto.Adjunto{Nombre: u.header.Filename, Tipo: tipo, Contenido: u.file})
	}

	return out
}

func closeAll(files []upload) {
	for _, u := range files {
		_ = u.file.Close()
	}
}

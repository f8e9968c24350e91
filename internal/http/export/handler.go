// Package export serves expense reports: a JSON summary and a zip with the
// supporting documents.
package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/gastos/internal/export"
	"github.com/MrJamesThe3rd/gastos/internal/gasto"
	"github.com/MrJamesThe3rd/gastos/internal/http/respond"
	"github.com/MrJamesThe3rd/gastos/internal/http/session"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.metadata)
	r.Post("/download", h.download)
}

type exportRequest struct {
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	ProyectoID string     `json:"proyectoId,omitempty"`
}

type itemResponse struct {
	Gasto gasto.Gasto `json:"gasto"`
	Files []string    `json:"files"`
}

type exportMetadataResponse struct {
	Items   []itemResponse `json:"items"`
	Summary string         `json:"summary"`
}

// run exports into a temporary directory the caller removes. It writes the
// error response itself and returns ok=false when it does.
func (h *Handler) run(w http.ResponseWriter, r *http.Request) (svc *export.Service, items []export.Item, dir string, ok bool) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, err.Error())
		return nil, nil, "", false
	}

	svc = session.Workspace(r.Context()).Export
	if svc == nil {
		respond.JSON(w, http.StatusNotImplemented, map[string]string{"error": "document downloads are not available"})
		return nil, nil, "", false
	}

	dir, err := os.MkdirTemp("", "gastos-export-*")
	if err != nil {
		respond.Error(w, fmt.Errorf("creating temp dir: %w", err))
		return nil, nil, "", false
	}

	filter := export.Filter{From: req.From, To: req.To, ProyectoID: req.ProyectoID}

	items, err = svc.Export(r.Context(), filter, dir)
	if err != nil {
		os.RemoveAll(dir)
		respond.Error(w, err)

		return nil, nil, "", false
	}

	return svc, items, dir, true
}

func (h *Handler) metadata(w http.ResponseWriter, r *http.Request) {
	svc, items, dir, ok := h.run(w, r)
	if !ok {
		return
	}
	defer os.RemoveAll(dir)

	resp := exportMetadataResponse{
		Items:   make([]itemResponse, 0, len(items)),
		Summary: svc.Summary(items),
	}

	for _, item := range items {
		files := make([]string, 0, len(item.Files))
		for _, f := range item.Files {
			files = append(files, filepath.Base(f))
		}

		resp.Items = append(resp.Items, itemResponse{Gasto: item.Gasto, Files: files})
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	svc, items, dir, ok := h.run(w, r)
	if !ok {
		return
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "resumen.txt"), []byte(svc.Summary(items)), 0o644); err != nil {
		respond.Error(w, fmt.Errorf("writing summary: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"gastos_%s.zip\"", time.Now().Format("20060102")))

	zipWriter := zip.NewWriter(w)
	defer zipWriter.Close()

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		relPath, _ := filepath.Rel(dir, path)

		zf, err := zipWriter.Create(relPath)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(zf, f)

		return err
	})
	if err != nil {
		slog.Error("failed to create zip", "error", err)
	}
}

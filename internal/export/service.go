// Package export downloads the supporting documents of a set of expenses and
// renders a summary that can be pasted into an expense report.
package export

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/MrJamesThe3rd/gastos/internal/gasto"
)

type Gastos interface {
	GetAll(ctx context.Context) ([]gasto.Gasto, error)
}

// Downloader fetches a file from the document library by its web URL.
type Downloader interface {
	Download(ctx context.Context, webURL string) (*http.Response, error)
}

// Filter bounds are inclusive. A zero Filter selects every expense.
type Filter struct {
	From       *time.Time
	To         *time.Time
	ProyectoID string
}

func (f Filter) match(g gasto.Gasto) bool {
	if f.From != nil && g.Fecha.Before(*f.From) {
		return false
	}

	if f.To != nil && g.Fecha.After(*f.To) {
		return false
	}

	return f.ProyectoID == "" || g.ProyectoID == f.ProyectoID
}

// Item is an exported expense with the local paths of its downloaded files.
type Item struct {
	Gasto gasto.Gasto
	Files []string
}

type Service struct {
	gastos     Gastos
	downloader Downloader
}

func NewService(gastos Gastos, downloader Downloader) *Service {
	return &Service{gastos: gastos, downloader: downloader}
}

// Export downloads the attachments of the expenses matching filter into
// outputDir. Items are ordered by date.
func (s *Service) Export(ctx context.Context, filter Filter, outputDir string) ([]Item, error) {
	all, err := s.gastos.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing gastos: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var selected []gasto.Gasto

	for _, g := range all {
		if filter.match(g) {
			selected = append(selected, g)
		}
	}

	slices.SortStableFunc(selected, func(a, b gasto.Gasto) int { return a.Fecha.Compare(b.Fecha) })

	items := make([]Item, 0, len(selected))

	for _, g := range selected {
		item := Item{Gasto: g}

		for i, a := range g.ArchivosAdjuntos {
			if a.URL == "" {
				continue
			}

			path, err := s.download(ctx, g, i, a, outputDir)
			if err != nil {
				return nil, fmt.Errorf("downloading %s of gasto %s: %w", cmp.Or(a.Nombre, a.URL), g.ID, err)
			}

			item.Files = append(item.Files, path)
		}

		items = append(items, item)
	}

	return items, nil
}

func (s *Service) download(ctx context.Context, g gasto.Gasto, idx int, a gasto.Adjunto, dir string) (string, error) {
	resp, err := s.downloader.Download(ctx, a.URL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	path := filepath.Join(dir, filename(resp, g, idx, a))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}

	return path, nil
}

// filename prefixes every file with the expense date and id so names from
// different expenses cannot collide.
func filename(resp *http.Response, g gasto.Gasto, idx int, a gasto.Adjunto) string {
	prefix := g.Fecha.Format("20060102") + "_" + g.ID + "_"

	if a.Nombre != "" {
		return prefix + sanitize(filepath.Base(a.Nombre))
	}

	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return prefix + sanitize(filepath.Base(params["filename"]))
		}
	}

	ext := ".pdf"

	if ct := cmp.Or(a.Tipo, resp.Header.Get("Content-Type")); ct != "" {
		if exts, _ := mime.ExtensionsByType(ct); len(exts) > 0 {
			ext = exts[0]
		}
	}

	return fmt.Sprintf("%sadjunto%d%s", prefix, idx+1, ext)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}

		return r
	}, name)
}

// Summary renders one line per expense with the amount in Chilean pesos and a
// closing total.
func (s *Service) Summary(items []Item) string {
	p := message.NewPrinter(language.Spanish)

	var (
		sb    strings.Builder
		total int64
	)

	for _, item := range items {
		g := item.Gasto
		total += g.Monto

		files := "Sin respaldo"
		if len(item.Files) > 0 {
			names := make([]string, len(item.Files))
			for i, f := range item.Files {
				names[i] = filepath.Base(f)
			}

			files = strings.Join(names, ", ")
		}

		detalle := cmp.Or(g.Detalle, g.NumeroDocumento)

		sb.WriteString(p.Sprintf("* %s | %s | $%d | %s\n", g.Fecha.Format("2006-01-02"), detalle, g.Monto, files))
	}

	sb.WriteString(p.Sprintf("Total: $%d\n", total))

	return sb.String()
}

package export_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gastos/internal/auth"
	"github.com/MrJamesThe3rd/gastos/internal/export"
	"github.com/MrJamesThe3rd/gastos/internal/gasto"
	"github.com/MrJamesThe3rd/gastos/internal/graph"
)

type gastosFunc func(ctx context.Context) ([]gasto.Gasto, error)

func (f gastosFunc) GetAll(ctx context.Context) ([]gasto.Gasto, error) { return f(ctx) }

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func downloader(t *testing.T) *graph.Client {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sp-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch r.URL.Path {
		case "/Adjuntos/gastos/1/boleta.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("boleta"))
		case "/Adjuntos/gastos/2/scan":
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", `attachment; filename="factura 1001.pdf"`)
			_, _ = w.Write([]byte("factura"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)

	provider := auth.NewProvider(nil, auth.Passthrough{auth.AudienceSharePoint: "sp-token"}, nil)
	provider.SignIn(auth.Account{ID: "acc-1"})

	return graph.New(graph.Options{BaseURL: ts.URL, Tokens: provider, HTTPClient: ts.Client()})
}

func TestService_Export(t *testing.T) {
	client := downloader(t)
	base := client.BaseURL()

	gastos := []gasto.Gasto{
		{ID: "2", Fecha: day(5), Detalle: "Factura ferretería", Monto: 119000, ProyectoID: "7",
			ArchivosAdjuntos: []gasto.Adjunto{{URL: base + "/Adjuntos/gastos/2/scan"}}},
		{ID: "1", Fecha: day(4), Detalle: "Almuerzo", Monto: 12500, ProyectoID: "7",
			ArchivosAdjuntos: []gasto.Adjunto{{Nombre: "boleta.pdf", URL: base + "/Adjuntos/gastos/1/boleta.pdf"}}},
		{ID: "3", Fecha: day(6), Detalle: "Peaje", Monto: 3200, ProyectoID: "7"},
		{ID: "4", Fecha: day(6), Detalle: "Otro proyecto", Monto: 1000, ProyectoID: "8"},
		{ID: "5", Fecha: day(20), Detalle: "Fuera de rango", Monto: 1000, ProyectoID: "7"},
	}

	svc := export.NewService(gastosFunc(func(context.Context) ([]gasto.Gasto, error) { return gastos, nil }), client)

	to := day(10)
	dir := t.TempDir()

	items, err := svc.Export(context.Background(), export.Filter{To: &to, ProyectoID: "7"}, dir)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "1", items[0].Gasto.ID)
	require.Len(t, items[0].Files, 1)
	assert.Equal(t, "20260304_1_boleta.pdf", filepath.Base(items[0].Files[0]))

	content, err := os.ReadFile(items[0].Files[0])
	require.NoError(t, err)
	assert.Equal(t, "boleta", string(content))

	assert.Equal(t, "2", items[1].Gasto.ID)
	require.Len(t, items[1].Files, 1)
	assert.Equal(t, "20260305_2_factura_1001.pdf", filepath.Base(items[1].Files[0]))

	assert.Equal(t, "3", items[2].Gasto.ID)
	assert.Empty(t, items[2].Files)
}

func TestService_ExportErrors(t *testing.T) {
	type testCase struct {
		name    string
		gastos  gastosFunc
		wantErr string
	}

	client := downloader(t)

	tests := []testCase{
		{
			name:    "listing fails",
			gastos:  func(context.Context) ([]gasto.Gasto, error) { return nil, errors.New("boom") },
			wantErr: "listing gastos: boom",
		},
		{
			name: "missing file",
			gastos: func(context.Context) ([]gasto.Gasto, error) {
				return []gasto.Gasto{{ID: "9", Fecha: day(1), ArchivosAdjuntos: []gasto.Adjunto{
					{Nombre: "perdido.pdf", URL: client.BaseURL() + "/Adjuntos/gastos/9/perdido.pdf"},
				}}}, nil
			},
			wantErr: "downloading perdido.pdf of gasto 9",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := export.NewService(tc.gastos, client).Export(context.Background(), export.Filter{}, t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestService_Summary(t *testing.T) {
	svc := export.NewService(nil, nil)

	body := svc.Summary([]export.Item{
		{Gasto: gasto.Gasto{Fecha: day(4), Detalle: "Almuerzo", Monto: 12500}, Files: []string{"/tmp/x/20260304_1_boleta.pdf"}},
		{Gasto: gasto.Gasto{Fecha: day(6), NumeroDocumento: "F-77", Monto: 119000}},
	})

	assert.Contains(t, body, "* 2026-03-04 | Almuerzo | $12.500 | 20260304_1_boleta.pdf\n")
	assert.Contains(t, body, "* 2026-03-06 | F-77 | $119.000 | Sin respaldo\n")
	assert.Contains(t, body, "Total: $131.500\n")
}

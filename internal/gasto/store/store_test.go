package store_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gastos/internal/attachment"
	"github.com/MrJamesThe3rd/gastos/internal/gasto"
	"github.com/MrJamesThe3rd/gastos/internal/gasto/store"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint/sharepointtest"
)

var lists = store.Lists{
	Gastos:         "Gastos",
	Adjuntos:       "Adjuntos",
	Empresas:       "Empresas",
	Proyectos:      "Proyectos",
	Colaboradores:  "Colaboradores",
	Categorias:     "Categorias",
	TiposDocumento: "TiposDocumento",
}

type fixture struct {
	fake     *sharepointtest.Fake
	store    *store.Store
	journal  *attachment.MemoryJournal
	empresa  string
	proyecto string
	persona  string
	factura  string
	viajes   string
}

func newFixture(t *testing.T, withTipos bool) fixture {
	t.Helper()

	fake := sharepointtest.New()

	empresas := fake.AddList("Empresas",
		sharepointtest.TextColumn("Title", "Title"),
		sharepointtest.TextColumn("RUT", "RUT"),
	)
	proyectos := fake.AddList("Proyectos", sharepointtest.TextColumn("Title", "Title"))
	fake.AddList("Colaboradores",
		sharepointtest.TextColumn("Title", "Title"),
		sharepointtest.TextColumn("Email", "Email"),
	)
	fake.AddList("Categorias", sharepointtest.TextColumn("Title", "Title"))
	fake.AddLibrary("Adjuntos")

	fake.AddList("Gastos",
		sharepointtest.TextColumn("Title", "Title"),
		sharepointtest.DateTimeColumn("Fecha", "Fecha"),
		sharepointtest.LookupColumn("Empresa", "Empresa", empresas),
		sharepointtest.TextColumn("Categoria", "Categoría"),
		sharepointtest.TextColumn("TipoDocumento", "Tipo Documento"),
		sharepointtest.TextColumn("NumeroDocumento", "Número Documento"),
		sharepointtest.CurrencyColumn("Monto", "Monto"),
		sharepointtest.NoteColumn("Detalle", "Detalle"),
		sharepointtest.LookupColumn("Proyecto", "Proyecto", proyectos),
		sharepointtest.TextColumn("ComentarioTipoDocumento", "Comentario Tipo Documento"),
		sharepointtest.NoteColumn("ArchivosAdjuntos", "Archivos Adjuntos"),
		sharepointtest.PersonColumn("Solicitante", "Solicitante"),
	)

	f := fixture{
		fake:     fake,
		journal:  attachment.NewMemoryJournal(),
		empresa:  fake.Seed("Empresas", map[string]any{"Title": "Ferretería Los Andes SpA", "RUT": "76.123.456-7"}),
		proyecto: fake.Seed("Proyectos", map[string]any{"Title": "Proyecto Alpha"}),
		persona:  fake.Seed("Colaboradores", map[string]any{"Title": "Ana", "Email": "ana@example.com"}),
		viajes:   fake.Seed("Categorias", map[string]any{"Title": "Viajes"}),
	}

	if withTipos {
		fake.AddList("TiposDocumento", sharepointtest.TextColumn("Title", "Title"))
		f.factura = fake.Seed("TiposDocumento", map[string]any{"Title": "Factura"})
	}

	log := slog.New(slog.DiscardHandler)
	site := sharepoint.SiteRef{Host: sharepointtest.Host, Path: sharepointtest.Path}
	client := sharepoint.NewClient(fake, sharepoint.NewCache(), site, sharepointtest.SignedIn("ana@example.com"), log)

	f.store = store.New(client, lists, attachment.NewTracker(f.journal, log), log)

	return f
}

func fecha() time.Time {
	return time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)
}

func TestStore_CreateResolvesReferences(t *testing.T) {
	f := newFixture(t, true)

	created, err := f.store.Create(context.Background(), gasto.Gasto{
		Fecha:           fecha(),
		EmpresaID:       " 76.123.456-7 ",
		Categoria:       "viajes",
		TipoDocumento:   "Factura",
		NumeroDocumento: "F-1001",
		Monto:           119000,
		ProyectoID:      "proyecto alpha",
	})
	require.NoError(t, err)

	assert.Equal(t, f.empresa, created.EmpresaID)
	assert.Equal(t, f.viajes, created.Categoria)
	assert.Equal(t, f.factura, created.TipoDocumento)
	assert.Equal(t, f.proyecto, created.ProyectoID)
	assert.Equal(t, f.persona, created.SolicitanteID)
	assert.Equal(t, int64(119000), created.Monto)
	assert.True(t, fecha().Equal(created.Fecha))

	row := f.fake.Rows("Gastos")[0]
	assert.Equal(t, f.empresa, row.Fields["EmpresaLookupId"])
	assert.Equal(t, f.proyecto, row.Fields["ProyectoLookupId"])
	assert.Equal(t, "F-1001", row.Fields["Title"])
	assert.NotContains(t, row.Fields, "ArchivosAdjuntos")

	all, err := f.store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, created, all[0])
}

func TestStore_CreateReferenceRules(t *testing.T) {
	type testCase struct {
		name      string
		withTipos bool
		input     gasto.Gasto
		wantErr   error
		check     func(t *testing.T, f fixture, g gasto.Gasto)
	}

	base := func(mod func(*gasto.Gasto)) gasto.Gasto {
		g := gasto.Gasto{
			Fecha:         fecha(),
			EmpresaID:     "76.123.456-7",
			Categoria:     "Viajes",
			TipoDocumento: "Boleta",
			Monto:         5000,
		}
		mod(&g)

		return g
	}

	tests := []testCase{
		{
			name:      "empresa by name",
			withTipos: false,
			input:     base(func(g *gasto.Gasto) { g.EmpresaID = "ferretería los andes spa" }),
			check: func(t *testing.T, f fixture, g gasto.Gasto) {
				assert.Equal(t, f.empresa, g.EmpresaID)
			},
		},
		{
			name:  "empresa by row id",
			input: base(func(g *gasto.Gasto) { g.EmpresaID = "1" }),
			check: func(t *testing.T, f fixture, g gasto.Gasto) {
				assert.Equal(t, f.empresa, g.EmpresaID)
			},
		},
		{
			name:    "empresa missing",
			input:   base(func(g *gasto.Gasto) { g.EmpresaID = "" }),
			wantErr: sharepoint.ErrLookupUnresolved,
		},
		{
			name:    "empresa unknown",
			input:   base(func(g *gasto.Gasto) { g.EmpresaID = "99.999.999-9" }),
			wantErr: sharepoint.ErrLookupUnresolved,
		},
		{
			name:    "categoria unknown",
			input:   base(func(g *gasto.Gasto) { g.Categoria = "Alimentación" }),
			wantErr: sharepoint.ErrLookupUnresolved,
		},
		{
			name:  "tipo list missing keeps the value",
			input: base(func(*gasto.Gasto) {}),
			check: func(t *testing.T, _ fixture, g gasto.Gasto) {
				assert.Equal(t, "Boleta", g.TipoDocumento)
			},
		},
		{
			name:  "unknown proyecto is dropped",
			input: base(func(g *gasto.Gasto) { g.ProyectoID = "Proyecto Omega" }),
			check: func(t *testing.T, f fixture, g gasto.Gasto) {
				assert.Empty(t, g.ProyectoID)
				assert.NotContains(t, f.fake.Rows("Gastos")[0].Fields, "ProyectoLookupId")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.withTipos)

			got, err := f.store.Create(context.Background(), tc.input)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, f.fake.Rows("Gastos"))

				return
			}

			require.NoError(t, err)
			tc.check(t, f, got)
		})
	}
}

func TestStore_CreateWithoutAccount(t *testing.T) {
	fake := sharepointtest.New()
	site := sharepoint.SiteRef{Host: sharepointtest.Host, Path: sharepointtest.Path}
	client := sharepoint.NewClient(fake, sharepoint.NewCache(), site, &sharepointtest.Accounts{}, nil)

	_, err := store.New(client, lists, nil, nil).Create(context.Background(), gasto.Gasto{EmpresaID: "1"})
	require.ErrorIs(t, err, sharepoint.ErrAuthRequired)
	assert.Zero(t, fake.TotalCalls())
}

func TestStore_CreateUploadsAttachments(t *testing.T) {
	f := newFixture(t, true)

	created, err := f.store.Create(context.Background(), gasto.Gasto{
		Fecha:         fecha(),
		EmpresaID:     "76.123.456-7",
		Categoria:     "Viajes",
		TipoDocumento: "Factura",
		Monto:         119000,
		ArchivosAdjuntos: []gasto.Adjunto{
			{Nombre: "boleta.pdf", Contenido: strings.NewReader("%PDF-1.4 boleta")},
			{Nombre: "nota.txt", Contenido: strings.NewReader("peaje ruta 68")},
		},
	})
	require.NoError(t, err)

	require.Len(t, created.ArchivosAdjuntos, 2)
	assert.Equal(t, "boleta.pdf", created.ArchivosAdjuntos[0].Nombre)
	assert.Equal(t, "application/pdf", created.ArchivosAdjuntos[0].Tipo)
	assert.True(t, strings.HasSuffix(created.ArchivosAdjuntos[0].URL, "/Adjuntos/gastos/"+created.ID+"/boleta.pdf"))
	assert.Equal(t, "text/plain; charset=utf-8", created.ArchivosAdjuntos[1].Tipo)

	body, ok := f.fake.File("Adjuntos", "gastos/"+created.ID+"/nota.txt")
	require.True(t, ok)
	assert.Equal(t, "peaje ruta 68", string(body))

	all, err := f.store.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, created.ArchivosAdjuntos, all[0].ArchivosAdjuntos)

	pending, err := f.store.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestStore_PartialAttachmentFailure(t *testing.T) {
	f := newFixture(t, true)
	f.fake.FailUpload("foto.jpg", errors.New("quota exceeded"))

	created, err := f.store.Create(context.Background(), gasto.Gasto{
		Fecha:         fecha(),
		EmpresaID:     "76.123.456-7",
		Categoria:     "Viajes",
		TipoDocumento: "Factura",
		Monto:         119000,
		ArchivosAdjuntos: []gasto.Adjunto{
			{Nombre: "boleta.pdf", Contenido: strings.NewReader("%PDF-1.4")},
			{Nombre: "foto.jpg", Contenido: strings.NewReader("jpeg")},
		},
	})
	require.ErrorIs(t, err, sharepoint.ErrPartialAttachment)

	var partial *sharepoint.PartialAttachmentError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, created.ID, partial.ItemID)
	assert.Equal(t, []string{"foto.jpg"}, partial.Failed)

	require.NotEmpty(t, created.ID)
	require.Len(t, f.fake.Rows("Gastos"), 1)
	require.Len(t, created.ArchivosAdjuntos, 1)
	assert.Equal(t, "boleta.pdf", created.ArchivosAdjuntos[0].Nombre)

	pending, err := f.store.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, attachment.StateAttachmentsPending, pending[0].State)
	assert.Equal(t, created.ID, pending[0].ItemID)
	assert.Equal(t, "acc-1", pending[0].Account)

	others, err := f.journal.Pending(context.Background(), "acc-2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestStore_UpdateAddsAttachment(t *testing.T) {
	f := newFixture(t, true)

	created, err := f.store.Create(context.Background(), gasto.Gasto{
		Fecha:         fecha(),
		EmpresaID:     "76.123.456-7",
		Categoria:     "Viajes",
		TipoDocumento: "Factura",
		Monto:         1000,
		Detalle:       "almuerzo",
	})
	require.NoError(t, err)

	monto := int64(2500)
	adjuntos := []gasto.Adjunto{{Nombre: "recibo.pdf", Tipo: "application/pdf", Contenido: strings.NewReader("%PDF")}}

	updated, err := f.store.Update(context.Background(), created.ID, gasto.Patch{Monto: &monto, ArchivosAdjuntos: &adjuntos})
	require.NoError(t, err)

	assert.Equal(t, int64(2500), updated.Monto)
	assert.Equal(t, "almuerzo", updated.Detalle)
	require.Len(t, updated.ArchivosAdjuntos, 1)
	assert.Equal(t, "recibo.pdf", updated.ArchivosAdjuntos[0].Nombre)
}

func TestStore_Delete(t *testing.T) {
	f := newFixture(t, true)

	created, err := f.store.Create(context.Background(), gasto.Gasto{
		Fecha:         fecha(),
		EmpresaID:     "76.123.456-7",
		Categoria:     "Viajes",
		TipoDocumento: "Factura",
		Monto:         1000,
	})
	require.NoError(t, err)

	require.NoError(t, f.store.Delete(context.Background(), created.ID))
	assert.Empty(t, f.fake.Rows("Gastos"))

	err = f.store.Delete(context.Background(), created.ID)
	assert.ErrorIs(t, err, sharepoint.ErrRemoteRejected)
}

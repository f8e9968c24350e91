package store_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gastos/internal/catalog"
	"github.com/MrJamesThe3rd/gastos/internal/catalog/store"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint/sharepointtest"
)

func newClient(fake *sharepointtest.Fake) *sharepoint.Client {
	site := sharepoint.SiteRef{Host: sharepointtest.Host, Path: sharepointtest.Path}

	return sharepoint.NewClient(fake, sharepoint.NewCache(), site,
		sharepointtest.SignedIn("ana@example.com"), slog.New(slog.DiscardHandler))
}

func TestProyectos_CreateAppearsInGetAll(t *testing.T) {
	fake := sharepointtest.New()
	fake.AddList("Proyectos", sharepointtest.TextColumn("Title", "Title"))

	gw := store.NewProyectos(newClient(fake), "Proyectos")

	created, err := gw.Create(context.Background(), catalog.Proyecto{Nombre: "Proyecto Alpha"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Proyecto Alpha", created.Nombre)
	assert.False(t, created.CreatedAt.IsZero())

	all, err := gw.GetAll(context.Background())
	require.NoError(t, err)
	assert.Contains(t, all, created)
}

func TestEmpresas_RoundTrip(t *testing.T) {
	fake := sharepointtest.New()
	fake.AddList("Empresas",
		sharepointtest.TextColumn("Title", "Title"),
		sharepointtest.TextColumn("RazonSocial", "Razón Social"),
		sharepointtest.TextColumn("field_1", "RUT"),
		sharepointtest.TextColumn("field_2", "Correo Electrónico"),
		sharepointtest.ChoiceColumn("field_3", "Categoría", "Empresa", "Persona Natural"),
	)

	gw := store.NewEmpresas(newClient(fake), "Empresas")

	in := catalog.Empresa{
		RazonSocial:       "Ferretería Los Andes SpA",
		RUT:               "76.123.456-7",
		CorreoElectronico: "ventas@losandes.cl",
		Categoria:         catalog.CategoriaEmpresaEmpresa,
	}

	created, err := gw.Create(context.Background(), in)
	require.NoError(t, err)

	in.ID = created.ID
	in.CreatedAt = created.CreatedAt
	assert.Equal(t, in, created)

	row := fake.Rows("Empresas")[0]
	assert.Equal(t, "Ferretería Los Andes SpA", row.Fields["Title"])
	assert.Equal(t, "76.123.456-7", row.Fields["field_1"])
	assert.NotContains(t, row.Fields, "NumeroContacto")

	rut := "77.000.000-K"

	updated, err := gw.Update(context.Background(), created.ID, catalog.EmpresaPatch{RUT: &rut})
	require.NoError(t, err)
	assert.Equal(t, rut, updated.RUT)
	assert.Equal(t, in.RazonSocial, updated.RazonSocial)
	assert.Equal(t, in.CorreoElectronico, updated.CorreoElectronico)
}

func TestTiposDocumento(t *testing.T) {
	t.Run("MissingListReadsEmpty", func(t *testing.T) {
		gw := store.NewTiposDocumento(newClient(sharepointtest.New()), "TiposDocumento")

		all, err := gw.GetAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("TaxFraction", func(t *testing.T) {
		fake := sharepointtest.New()
		fake.AddList("TiposDocumento",
			sharepointtest.TextColumn("Title", "Title"),
			sharepointtest.BooleanColumn("TieneImpuestos", "Tiene Impuestos"),
			sharepointtest.NumberColumn("ValorImpuestos", "Valor Impuestos"),
		)

		gw := store.NewTiposDocumento(newClient(fake), "TiposDocumento")

		created, err := gw.Create(context.Background(), catalog.TipoDocumento{
			Nombre:         "Factura",
			TieneImpuestos: true,
			ValorImpuestos: decimal.NewNullDecimal(decimal.RequireFromString("0.19")),
		})
		require.NoError(t, err)
		assert.Equal(t, "Factura", created.Nombre)
		assert.True(t, created.TieneImpuestos)
		require.True(t, created.ValorImpuestos.Valid)
		assert.True(t, created.ValorImpuestos.Decimal.Equal(decimal.RequireFromString("0.19")))
	})
}

func TestCategorias_Delete(t *testing.T) {
	fake := sharepointtest.New()
	fake.AddList("Categorias",
		sharepointtest.TextColumn("Title", "Title"),
		sharepointtest.TextColumn("Color", "Color"),
	)

	gw := store.NewCategorias(newClient(fake), "Categorias")

	c, err := gw.Create(context.Background(), catalog.Categoria{Nombre: "Viáticos", Color: "#ff8800"})
	require.NoError(t, err)
	assert.Equal(t, "#ff8800", c.Color)

	require.NoError(t, gw.Delete(context.Background(), c.ID))

	all, err := gw.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

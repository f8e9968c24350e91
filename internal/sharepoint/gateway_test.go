package sharepoint_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint/sharepointtest"
)

type proyecto struct {
	ID          string
	Nombre      string
	Presupuesto int64
	Activo      bool
}

type proyectoPatch struct {
	Nombre      *string
	Presupuesto *int64
}

type proyectoMapper struct {
	optional bool
}

func (m proyectoMapper) Spec() sharepoint.ListSpec {
	return sharepoint.ListSpec{
		Name:     "Proyectos",
		Optional: m.optional,
		Fields: []sharepoint.FieldSpec{
			{Name: "nombre", Candidates: []string{"Nombre", "Title"}, Required: true},
			{Name: "presupuesto", Candidates: []string{"Presupuesto"}},
			{Name: "activo", Candidates: []string{"Activo", "Vigente"}},
		},
	}
}

func (proyectoMapper) Decode(r sharepoint.Record) (proyecto, error) {
	return proyecto{
		ID:          r.ID,
		Nombre:      r.String("nombre"),
		Presupuesto: r.Int("presupuesto"),
		Activo:      r.Bool("activo"),
	}, nil
}

func (proyectoMapper) Encode(p proyecto, f *sharepoint.Fields) {
	f.Set("nombre", p.Nombre)
	f.Set("presupuesto", p.Presupuesto)
	f.Set("activo", p.Activo)
}

func (proyectoMapper) EncodePatch(p proyectoPatch, f *sharepoint.Fields) {
	if p.Nombre != nil {
		f.Set("nombre", *p.Nombre)
	}

	if p.Presupuesto != nil {
		f.Set("presupuesto", *p.Presupuesto)
	}
}

func proyectos(t *testing.T) (*sharepointtest.Fake, *sharepoint.Gateway[proyecto, proyectoPatch]) {
	t.Helper()

	fake := sharepointtest.New()
	fake.AddList("Proyectos",
		sharepointtest.TextColumn("Title", "Nombre"),
		sharepointtest.CurrencyColumn("Presupuesto", "Presupuesto"),
		sharepointtest.BooleanColumn("field_3", "Vigente"),
	)

	c := newClient(fake, sharepointtest.SignedIn("ana@example.com"))

	return fake, sharepoint.NewGateway[proyecto, proyectoPatch](c, proyectoMapper{})
}

func TestGateway_CreateThenGetAll(t *testing.T) {
	fake, gw := proyectos(t)

	in := proyecto{Nombre: "Proyecto Alpha", Presupuesto: 1500000, Activo: true}

	created, err := gw.Create(context.Background(), in)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	in.ID = created.ID
	assert.Equal(t, in, created)

	all, err := gw.GetAll(context.Background())
	require.NoError(t, err)
	assert.Contains(t, all, in)

	rows := fake.Rows("Proyectos")
	require.Len(t, rows, 1)
	assert.Equal(t, "Proyecto Alpha", rows[0].Fields["Title"])
	assert.Equal(t, true, rows[0].Fields["field_3"])
}

func TestGateway_GetAllKeepsStoreOrder(t *testing.T) {
	fake, gw := proyectos(t)

	for _, n := range []string{"Zeta", "Alfa", "Media"} {
		fake.Seed("Proyectos", map[string]any{"Title": n})
	}

	all, err := gw.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Zeta", "Alfa", "Media"}, []string{all[0].Nombre, all[1].Nombre, all[2].Nombre})
}

func TestGateway_UpdateIsSparse(t *testing.T) {
	_, gw := proyectos(t)

	created, err := gw.Create(context.Background(), proyecto{Nombre: "Beta", Presupuesto: 100, Activo: true})
	require.NoError(t, err)

	monto := int64(250)

	updated, err := gw.Update(context.Background(), created.ID, proyectoPatch{Presupuesto: &monto})
	require.NoError(t, err)
	assert.Equal(t, "Beta", updated.Nombre)
	assert.Equal(t, int64(250), updated.Presupuesto)
	assert.True(t, updated.Activo)

	all, err := gw.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, updated, all[0])
}

func TestGateway_Delete(t *testing.T) {
	fake, gw := proyectos(t)

	keep := fake.Seed("Proyectos", map[string]any{"Title": "Queda"})
	gone := fake.Seed("Proyectos", map[string]any{"Title": "Se va"})

	require.NoError(t, gw.Delete(context.Background(), gone))

	all, err := gw.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep, all[0].ID)

	err = gw.Delete(context.Background(), gone)
	assert.ErrorIs(t, err, sharepoint.ErrRemoteRejected)
}

func TestGateway_MissingList(t *testing.T) {
	type testCase struct {
		name     string
		optional bool
		wantErr  error
	}

	tests := []testCase{
		{name: "OptionalReadsEmpty", optional: true},
		{name: "RequiredFails", wantErr: sharepoint.ErrListNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(sharepointtest.New(), sharepointtest.SignedIn("ana@example.com"))
			gw := sharepoint.NewGateway[proyecto, proyectoPatch](c, proyectoMapper{optional: tt.optional})

			all, err := gw.GetAll(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Empty(t, all)
			assert.NoError(t, gw.ValidateSchema(context.Background()))
		})
	}
}

func TestGateway_AuthRequiredFailsFast(t *testing.T) {
	fake := sharepointtest.New()
	fake.AddList("Proyectos", sharepointtest.TextColumn("Title", "Nombre"))

	c := newClient(fake, &sharepointtest.Accounts{})
	gw := sharepoint.NewGateway[proyecto, proyectoPatch](c, proyectoMapper{})

	ctx := context.Background()

	_, err := gw.GetAll(ctx)
	assert.ErrorIs(t, err, sharepoint.ErrAuthRequired)

	_, err = gw.Create(ctx, proyecto{Nombre: "x"})
	assert.ErrorIs(t, err, sharepoint.ErrAuthRequired)

	_, err = gw.Update(ctx, "1", proyectoPatch{})
	assert.ErrorIs(t, err, sharepoint.ErrAuthRequired)

	assert.ErrorIs(t, gw.Delete(ctx, "1"), sharepoint.ErrAuthRequired)
	assert.Zero(t, fake.TotalCalls())
}

func TestGateway_SchemaRejectionDropsColumns(t *testing.T) {
	fake, gw := proyectos(t)
	ctx := context.Background()

	_, err := gw.Create(ctx, proyecto{Nombre: "Uno", Presupuesto: 1})
	require.NoError(t, err)
	require.Equal(t, 1, fake.Calls("Columns"))

	fake.RemoveColumn("Proyectos", "Presupuesto")

	_, err = gw.Create(ctx, proyecto{Nombre: "Dos", Presupuesto: 2})
	assert.ErrorIs(t, err, sharepoint.ErrRemoteRejected)

	_, _ = gw.GetAll(ctx)
	assert.Equal(t, 2, fake.Calls("Columns"))
}

func TestGateway_ValidateSchema(t *testing.T) {
	fake := sharepointtest.New()
	fake.AddList("Proyectos", sharepointtest.NumberColumn("Presupuesto", "Presupuesto"))

	c := newClient(fake, sharepointtest.SignedIn("ana@example.com"))
	gw := sharepoint.NewGateway[proyecto, proyectoPatch](c, proyectoMapper{})

	err := gw.ValidateSchema(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sharepoint.ErrColumnNotFound)

	var schemaErr *sharepoint.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"nombre"}, schemaErr.Missing)
}

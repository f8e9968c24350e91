package catalog_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/gastos/internal/catalog"
)

func TestTipoDocumento_Impuesto(t *testing.T) {
	type testCase struct {
		name  string
		tipo  catalog.TipoDocumento
		bruto int64
		want  int64
	}

	iva := decimal.NewNullDecimal(decimal.RequireFromString("0.19"))

	tests := []testCase{
		{name: "Factura", tipo: catalog.TipoDocumento{TieneImpuestos: true, ValorImpuestos: iva}, bruto: 119000, want: 19000},
		{name: "Rounded", tipo: catalog.TipoDocumento{TieneImpuestos: true, ValorImpuestos: iva}, bruto: 1000, want: 160},
		{name: "Exento", tipo: catalog.TipoDocumento{ValorImpuestos: iva}, bruto: 119000, want: 0},
		{name: "NoRate", tipo: catalog.TipoDocumento{TieneImpuestos: true}, bruto: 119000, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tipo.Impuesto(tt.bruto))
		})
	}
}

func TestParseCategoriaEmpresa(t *testing.T) {
	assert.Equal(t, catalog.CategoriaEmpresaPersonaNatural, catalog.ParseCategoriaEmpresa(" persona natural"))
	assert.Equal(t, catalog.CategoriaEmpresaEmpresa, catalog.ParseCategoriaEmpresa("EMPRESA"))
	assert.Equal(t, catalog.CategoriaEmpresa(""), catalog.ParseCategoriaEmpresa("otra"))
}

package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Importe", "importe"},
		{"Fecha_Operación", "fecha operacion"},
		{"  CUIT/CUIL: ", "cuit cuil"},
		{"Nro. Operación", "nro operacion"},
		{"CBU-Destino", "cbu destino"},
		{"Ñandú   S.A.", "nandu sa"},
		{"Número de operación de Mercado Pago", "numero de operacion de mercado pago"},
		{":::", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Fecha y Hora:",
		"CUIT / CUIL",
		"Código de identificación",
		"  multiple   spaces\tand\nlines ",
		"über-straße_ÀÉÎÕÜ",
		"$ 1.234,56",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestAliases_AllNormalizedAndMapped(t *testing.T) {
	table := Aliases()
	assert.NotEmpty(t, table)
	for key, field := range table {
		assert.NotEmpty(t, field, "alias %q", key)
		assert.Equal(t, key, Normalize(key), "alias %q is not in normalized form", key)
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		key  string
		want Field
		ok   bool
	}{
		{"Importe", FieldAmount, true},
		{"CBU Origen:", FieldEmisorCBU, true},
		{"Fecha Operación", FieldDate, true},
		{"CUIT/CUIL", FieldWalletCUIT, true},
		{"CVU", FieldWalletCVU, true},
		// Listed for both sides; the later mapping wins.
		{"Acreedor", FieldReceptorName, true},
		{"PAGADOR", FieldReceptorName, true},
		{"color favorito", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := Lookup(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

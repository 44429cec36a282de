package document

// Field is a logical transaction field name.
type Field string

const (
	FieldAmount       Field = "amount"
	FieldTrxID        Field = "trx_id"
	FieldEmisorName   Field = "emisor_name"
	FieldEmisorCUIT   Field = "emisor_cuit"
	FieldEmisorCBU    Field = "emisor_cbu"
	FieldReceptorName Field = "receptor_name"
	FieldReceptorCUIT Field = "receptor_cuit"
	FieldReceptorCBU  Field = "receptor_cbu"
	FieldDate         Field = "date"
	FieldWalletCVU    Field = "wallet_cvu"
	FieldWalletCUIT   Field = "wallet_cuit"
)

type alias struct {
	label string
	field Field
}

// rawAliases is applied in order; a label listed twice keeps its last mapping.
var rawAliases = []alias{
	{"importe", FieldAmount},
	{"monto", FieldAmount},
	{"monto total", FieldAmount},
	{"numero de transaccion", FieldTrxID},
	{"nro operacion", FieldTrxID},
	{"operacion", FieldTrxID},
	{"referencia", FieldTrxID},
	{"nombre originante", FieldEmisorName},
	{"ordenante", FieldEmisorName},
	{"remitente", FieldEmisorName},
	{"documento originante", FieldEmisorCUIT},
	{"cuit originante", FieldEmisorCUIT},
	{"dni originante", FieldEmisorCUIT},
	{"cuenta origen", FieldEmisorCBU},
	{"cbu origen", FieldEmisorCBU},
	{"cvu origen", FieldEmisorCBU},
	{"alias origen", FieldEmisorCBU},
	{"nombre destinatario", FieldReceptorName},
	{"beneficiario", FieldReceptorName},
	{"documento destinatario", FieldReceptorCUIT},
	{"cuit destinatario", FieldReceptorCUIT},
	{"dni destinatario", FieldReceptorCUIT},
	{"cuenta destino", FieldReceptorCBU},
	{"cbu destino", FieldReceptorCBU},
	{"cvu destino", FieldReceptorCBU},
	{"alias destino", FieldReceptorCBU},
	{"fecha y hora", FieldDate},
	{"fecha operacion", FieldDate},
	{"fecha", FieldDate},
	{"importe total", FieldAmount},
	{"valor", FieldAmount},
	{"total", FieldAmount},
	{"id operacion", FieldTrxID},
	{"id transaccion", FieldTrxID},
	{"numero operacion", FieldTrxID},
	{"comprobante", FieldTrxID},
	{"numero comprobante", FieldTrxID},
	{"pagador", FieldEmisorName},
	{"deudor", FieldEmisorName},
	{"girador", FieldEmisorName},
	{"acreedor", FieldEmisorName},
	{"cuil originante", FieldEmisorCUIT},
	{"documento remitente", FieldEmisorCUIT},
	{"cuil remitente", FieldEmisorCUIT},
	{"banco origen", FieldEmisorCBU},
	{"cuenta origen cbu", FieldEmisorCBU},
	{"cta origen", FieldEmisorCBU},
	{"acreedor", FieldReceptorName},
	{"pagador", FieldReceptorName},
	{"destinatario final", FieldReceptorName},
	{"receptor", FieldReceptorName},
	{"cuil destinatario", FieldReceptorCUIT},
	{"documento beneficiario", FieldReceptorCUIT},
	{"cuil beneficiario", FieldReceptorCUIT},
	{"documento acreedor", FieldReceptorCUIT},
	{"banco destino", FieldReceptorCBU},
	{"cuenta destino cbu", FieldReceptorCBU},
	{"cta destino", FieldReceptorCBU},
	{"cuenta credito", FieldReceptorCBU},
	{"fecha hora operacion", FieldDate},
	{"fecha hora", FieldDate},
	{"timestamp", FieldDate},
	{"hora operacion", FieldDate},
	{"fecha procesamiento", FieldDate},
	{"fecha transaccion", FieldDate},
	{"fecha movimiento", FieldDate},
	{"fecha efectiva", FieldDate},
	{"fecha liquidacion", FieldDate},
	{"fecha contable", FieldDate},
	{"dinero", FieldAmount},
	{"suma", FieldAmount},
	{"cantidad", FieldAmount},
	{"precio", FieldAmount},
	{"costo", FieldAmount},
	{"gasto", FieldAmount},
	{"deposito", FieldAmount},
	{"extraccion", FieldAmount},
	{"retiro", FieldAmount},
	{"transferencia", FieldAmount},
	{"pago", FieldAmount},
	{"cobro", FieldAmount},
	{"saldo", FieldAmount},
	{"debe", FieldAmount},
	{"haber", FieldAmount},
	{"codigo operacion", FieldTrxID},
	{"codigo transaccion", FieldTrxID},
	{"codigo movimiento", FieldTrxID},
	{"referencia operacion", FieldTrxID},
	{"referencia transaccion", FieldTrxID},
	{"numero referencia", FieldTrxID},
	{"codigo comprobante", FieldTrxID},
	{"ticket", FieldTrxID},
	{"recibo", FieldTrxID},
	{"voucher", FieldTrxID},
	{"comprobante numero", FieldTrxID},
	{"referencia numero", FieldTrxID},
	{"transaccion id", FieldTrxID},
	{"transaccion numero", FieldTrxID},
	{"emisor", FieldEmisorName},
	{"origen", FieldEmisorName},
	{"remitente nombre", FieldEmisorName},
	{"nombre remitente", FieldEmisorName},
	{"cliente origen", FieldEmisorName},
	{"solicitante", FieldEmisorName},
	{"oferente", FieldEmisorName},
	{"cuit emisor", FieldEmisorCUIT},
	{"dni emisor", FieldEmisorCUIT},
	{"cuil emisor", FieldEmisorCUIT},
	{"documento emisor", FieldEmisorCUIT},
	{"numero documento emisor", FieldEmisorCUIT},
	{"numero dni emisor", FieldEmisorCUIT},
	{"numero cuit emisor", FieldEmisorCUIT},
	{"numero cuil emisor", FieldEmisorCUIT},
	{"rut origen", FieldEmisorCUIT},
	{"numero rut origen", FieldEmisorCUIT},
	{"id documento origen", FieldEmisorCUIT},
	{"cbu emisor", FieldEmisorCBU},
	{"cvu emisor", FieldEmisorCBU},
	{"alias emisor", FieldEmisorCBU},
	{"cuenta emisor", FieldEmisorCBU},
	{"numero cuenta emisor", FieldEmisorCBU},
	{"banco emisor", FieldEmisorCBU},
	{"numero banco emisor", FieldEmisorCBU},
	{"iban origen", FieldEmisorCBU},
	{"swift origen", FieldEmisorCBU},
	{"cuenta corriente origen", FieldEmisorCBU},
	{"caja ahorros origen", FieldEmisorCBU},
	{"receptor final", FieldReceptorName},
	{"destino", FieldReceptorName},
	{"beneficiario nombre", FieldReceptorName},
	{"nombre beneficiario", FieldReceptorName},
	{"cliente destino", FieldReceptorName},
	{"deudor nombre", FieldReceptorName},
	{"nombre deudor", FieldReceptorName},
	{"vendedor", FieldReceptorName},
	{"proveedor", FieldReceptorName},
	{"cuit receptor", FieldReceptorCUIT},
	{"dni receptor", FieldReceptorCUIT},
	{"cuil receptor", FieldReceptorCUIT},
	{"documento receptor", FieldReceptorCUIT},
	{"numero documento receptor", FieldReceptorCUIT},
	{"numero dni receptor", FieldReceptorCUIT},
	{"numero cuit receptor", FieldReceptorCUIT},
	{"numero cuil receptor", FieldReceptorCUIT},
	{"rut destino", FieldReceptorCUIT},
	{"numero rut destino", FieldReceptorCUIT},
	{"id documento destino", FieldReceptorCUIT},
	{"cbu receptor", FieldReceptorCBU},
	{"cvu receptor", FieldReceptorCBU},
	{"alias receptor", FieldReceptorCBU},
	{"cuenta receptor", FieldReceptorCBU},
	{"numero cuenta receptor", FieldReceptorCBU},
	{"banco receptor", FieldReceptorCBU},
	{"numero banco receptor", FieldReceptorCBU},
	{"iban destino", FieldReceptorCBU},
	{"swift destino", FieldReceptorCBU},
	{"cuenta corriente destino", FieldReceptorCBU},
	{"caja ahorros destino", FieldReceptorCBU},

	// Wallet receipts (Mercado Pago and similar)
	{"De", FieldEmisorName},
	{"Para", FieldReceptorName},
	{"Número de operación", FieldTrxID},
	{"Número de operación de Mercado Pago", FieldTrxID},
	{"Código de identificación", FieldTrxID},
	{"CVU", FieldWalletCVU},
	{"CUIT/CUIL", FieldWalletCUIT},
	{"CUITCUIL", FieldWalletCUIT},
	{"CUIT", FieldWalletCUIT},
	{"CUIL", FieldWalletCUIT},
}

var keyAliases = buildAliasTable(rawAliases)

// buildAliasTable indexes every alias by its normalized label, so lookups and the
// table always agree on normalization.
func buildAliasTable(entries []alias) map[string]Field {
	table := make(map[string]Field, len(entries))
	for _, e := range entries {
		key := Normalize(e.label)
		if key == "" {
			continue
		}
		table[key] = e.field
	}
	return table
}

// Lookup resolves a raw extracted key to its logical field.
func Lookup(rawKey string) (Field, bool) {
	field, ok := keyAliases[Normalize(rawKey)]
	return field, ok
}

// Aliases returns a copy of the normalized alias table.
func Aliases() map[string]Field {
	out := make(map[string]Field, len(keyAliases))
	for k, v := range keyAliases {
		out[k] = v
	}
	return out
}

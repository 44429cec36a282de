package services

import (
	"fmt"
	"strings"
)

// bankNames maps BCRA entity codes to bank names.
var bankNames = map[string]string{
	"007": "Banco de Galicia y Buenos Aires",
	"011": "Banco de la Nación Argentina",
	"014": "Banco de la Provincia de Buenos Aires",
	"015": "Industrial and Commercial Bank of China",
	"016": "Citibank",
	"017": "BBVA Argentina",
	"020": "Banco de la Provincia de Córdoba",
	"027": "Banco Supervielle",
	"029": "Banco de la Ciudad de Buenos Aires",
	"034": "Banco Patagonia",
	"044": "Banco Hipotecario",
	"045": "Banco de San Juan",
	"060": "Banco del Tucumán",
	"065": "Banco Municipal de Rosario",
	"072": "Banco Santander Argentina",
	"083": "Banco del Chubut",
	"086": "Banco de Santa Cruz",
	"093": "Banco de La Pampa",
	"094": "Banco de Corrientes",
	"097": "Banco Provincia del Neuquén",
	"143": "Brubank",
	"147": "Banco Interfinanzas",
	"150": "HSBC Bank Argentina",
	"165": "JPMorgan Chase Bank",
	"191": "Banco Credicoop Cooperativo",
	"198": "Banco de Valores",
	"247": "Banco Roela",
	"254": "Banco Mariva",
	"259": "Banco Itaú Argentina",
	"266": "BNP Paribas",
	"268": "Banco Provincia de Tierra del Fuego",
	"269": "Banco de la República Oriental del Uruguay",
	"277": "Banco Saenz",
	"281": "Banco Meridian",
	"285": "Banco Macro",
	"299": "Banco Comafi",
	"300": "Banco de Inversión y Comercio Exterior",
	"301": "Banco Piano",
	"305": "Banco Julio",
	"309": "Banco Rioja",
	"310": "Banco del Sol",
	"311": "Nuevo Banco del Chaco",
	"312": "BST",
	"315": "Banco de Formosa",
	"319": "Banco CMF",
	"321": "Banco de Santiago del Estero",
	"322": "Banco Industrial",
	"330": "Nuevo Banco de Santa Fe",
	"331": "Banco Cetelem Argentina",
	"332": "Banco de Servicios Financieros",
	"338": "Banco de Servicios y Transacciones",
	"339": "RCI Banque",
	"340": "BACS Banco de Crédito y Securitización",
	"341": "Banco Masventas",
	"384": "Wilobank",
	"386": "Nuevo Banco de Entre Ríos",
	"389": "Banco Columbia",
	"426": "Banco Bica",
	"431": "Banco Coinag",
	"432": "Banco de Comercio",
	"435": "Banco Sucredito Regional",
	"448": "Banco Dino",
}

// BankName resolves a provider bank number ("17", "017") to a readable name.
func BankName(bankNumber string) string {
	code := strings.TrimSpace(bankNumber)
	if code == "" {
		return ""
	}
	if len(code) < 3 {
		code = strings.Repeat("0", 3-len(code)) + code
	}
	if name, ok := bankNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Banco %s", code)
}

package table

// Well known column names.
const (
	ColumnYear     = "Year"
	ColumnQuantity = "Quantity"
)

// SortKey is the column order used to sort a combined dataset.
var SortKey = []string{
	"Year",
	"Taxon",
	"Order",
	"Family",
	"Genus",
	"Term",
	"Importer",
	"Exporter",
	"Appendix",
}

// ColumnType names the logical type of a column.
type ColumnType string

// Column types.
const (
	TypeInt    ColumnType = "int"
	TypeFloat  ColumnType = "float"
	TypeString ColumnType = "string"
)

// ColumnTypes declares the documented CITES trade schema.
// Columns that are not listed are treated as strings.
var ColumnTypes = map[string]ColumnType{
	"Year":                   TypeInt,
	"Appendix":               TypeString,
	"Taxon":                  TypeString,
	"Class":                  TypeString,
	"Order":                  TypeString,
	"Family":                 TypeString,
	"Genus":                  TypeString,
	"Term":                   TypeString,
	"Quantity":               TypeFloat,
	"Unit":                   TypeString,
	"Importer":               TypeString,
	"Exporter":               TypeString,
	"Origin":                 TypeString,
	"Purpose":                TypeString,
	"Source":                 TypeString,
	"Reporter.type":          TypeString,
	"Import.permit.RandomID": TypeString,
	"Export.permit.RandomID": TypeString,
	"Origin.permit.RandomID": TypeString,
}

// TypeOf returns the declared type of a column.
func TypeOf(column string) ColumnType {
	if t, ok := ColumnTypes[column]; ok {
		return t
	}
	return TypeString
}

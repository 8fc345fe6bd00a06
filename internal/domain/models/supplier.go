package models

import "fmt"

// SupplierHeader is the column header row of the product_metadata sheet.
var SupplierHeader = []string{"Product Name", "Supplier Name", "Contact Info"}

// ProductSupplierMapping links a product to its supplier. The table is plain
// reference data with no lifecycle beyond upserts.
type ProductSupplierMapping struct {
	ProductName  string
	SupplierName string
	ContactInfo  string
}

// Cells serializes the mapping for the worksheet.
func (m ProductSupplierMapping) Cells() []string {
	return []string{m.ProductName, m.SupplierName, m.ContactInfo}
}

// ParseSupplierTable reads the product_metadata worksheet.
func ParseSupplierTable(rows [][]string) ([]ProductSupplierMapping, error) {
	if hasHeader(rows, SupplierHeader[0]) {
		rows = rows[1:]
	}

	out := make([]ProductSupplierMapping, 0, len(rows))
	seen := map[string]bool{}
	for i, values := range rows {
		name := cell(values, 0)
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("metadata row %d: duplicate product %q", i+1, name)
		}
		seen[name] = true
		out = append(out, ProductSupplierMapping{
			ProductName:  name,
			SupplierName: cell(values, 1),
			ContactInfo:  cell(values, 2),
		})
	}
	return out, nil
}

// SupplierTableCells renders the full worksheet, header included.
func SupplierTableCells(mappings []ProductSupplierMapping) [][]string {
	out := make([][]string, 0, len(mappings)+1)
	out = append(out, SupplierHeader)
	for _, m := range mappings {
		out = append(out, m.Cells())
	}
	return out
}

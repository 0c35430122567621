package orders

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/odyssey-wms/internal/documents"
)

const exportSheet = "Packing list"

var exportHeaders = []string{"CODIGO", "NOMBRE", "UNIDAD", "CANTIDAD", "EMPAQUES", "LOTE", "SERIAL", "CANTIDAD ITEM", "BODEGA"}

// Export renders the packing list workbook of a document and a file name
// for it.
func (s *Service) Export(ctx context.Context, id int64) ([]byte, string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	data, err := PackingListWorkbook(*doc)
	if err != nil {
		return nil, "", err
	}
	name := doc.Code
	if name == "" {
		name = fmt.Sprintf("document-%d", doc.ID)
	}
	return data, name + ".xlsx", nil
}

// PackingListWorkbook writes one row per item, or one row per line without
// items. Line quantities follow the document state.
func PackingListWorkbook(doc documents.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("export: rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("export: header style: %w", err)
	}
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
		_ = f.SetCellStyle(exportSheet, cell, cell, headerStyle)
	}

	row := 2
	write := func(values ...any) error {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("export: row %d: %w", row, err)
		}
		row++
		return nil
	}

	var totals documents.Quantity
	for _, op := range doc.OrderProducts {
		var code, name, unit string
		if op.Product != nil {
			code, name, unit = op.Product.Code, op.Product.Name, op.Product.Unit
		}
		q := documents.SelectQuantity(doc.State, op)
		totals.Quantity += q.Quantity
		totals.Packages += q.Packages
		if len(op.Items) == 0 {
			if err := write(code, name, unit, q.Quantity, q.Packages); err != nil {
				return nil, err
			}
			continue
		}
		for _, item := range op.Items {
			var warehouse string
			if item.Warehouse != nil {
				warehouse = item.Warehouse.Name
			}
			if err := write(code, name, unit, q.Quantity, q.Packages, item.LotNumber, item.ItemNumber, item.Quantity, warehouse); err != nil {
				return nil, err
			}
		}
	}

	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("export: total style: %w", err)
	}
	totalRow := row
	if err := write("TOTAL", "", "", totals.Quantity, totals.Packages); err != nil {
		return nil, err
	}
	first, _ := excelize.CoordinatesToCellName(1, totalRow)
	last, _ := excelize.CoordinatesToCellName(len(exportHeaders), totalRow)
	_ = f.SetCellStyle(exportSheet, first, last, totalStyle)
	_ = f.SetColWidth(exportSheet, "A", "B", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

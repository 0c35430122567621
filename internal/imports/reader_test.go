package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSVStripsBOMAndBlankRows(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Código,Nombre,Unidad\nP-1,Tornillo,und\n,,\nP-2,Tuerca\n")...)

	rows, err := Parse("productos.csv", data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, NewRow(2, "Código", "P-1", "Nombre", "Tornillo", "Unidad", "und"), rows[0])
	assert.Equal(t, NewRow(4, "Código", "P-2", "Nombre", "Tuerca", "Unidad", ""), rows[1])
	assert.NoError(t, Validate(rows, ProductSchema.Requirements))
}

func TestParseCSVSemicolonWindows1252(t *testing.T) {
	// "Código;Cantidad" with ó encoded as 0xF3.
	data := []byte("C\xf3digo;Cantidad\r\nP-1;3,5\r\n")

	rows, err := Parse("lista.CSV", data)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "P-1", rows[0].String("Código"))
	qty, err := rows[0].Float("CANTIDAD")
	require.NoError(t, err)
	assert.Equal(t, 3.5, qty)
}

func TestParseWorkbookFirstSheet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"CODIGO", "CANTIDAD", "LOTE"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"P-1", 4, "L1"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"P-2", 2.5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rows, err := Parse("lista.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, NewRow(2, "CODIGO", "P-1", "CANTIDAD", "4", "LOTE", "L1"), rows[0])
	assert.Equal(t, "", rows[1].String("LOTE"))
	assert.Equal(t, "2.5", rows[1].String("CANTIDAD"))
}

func TestParseWorkbookKeepsSheetLines(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"CODIGO", "CANTIDAD"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"P-1", 1}))
	require.NoError(t, f.SetSheetRow(sheet, "A5", &[]any{"P-2", 2}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rows, err := Parse("lista.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, 5, rows[1].Line)
}

func TestParseHeaderOnlyIsEmpty(t *testing.T) {
	rows, err := Parse("vacio.csv", []byte("CODIGO,CANTIDAD\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, Validate(rows, PackingListSchema.Requirements), ErrEmptyFile)
}

func TestParseRejectsUnknownExtension(t *testing.T) {
	_, err := Parse("lista.pdf", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

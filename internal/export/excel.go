// Package export writes booking lists to spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"lemonbook/internal/models"
	"lemonbook/internal/slots"
)

// SheetName is the name of the bookings sheet.
const SheetName = "Bookings"

// Columns of the bookings sheet.
var Columns = []string{"Date", "Start", "End", "Name", "Email", "Phone", "Guests", "Branch", "Status", "Message"}

// Writer builds a workbook one row at a time.
type Writer struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

// NewWriter creates an empty workbook.
func NewWriter() *Writer {
	return &Writer{file: excelize.NewFile()}
}

// AddSheet adds a new sheet with the given name; the first call renames the default sheet.
func (w *Writer) AddSheet(name string) error {
	// Excel limit
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes bold column headers to the current sheet.
func (w *Writer) WriteHeader(columns []string) error {
	if err := w.writeCells(stringsToAny(columns)); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

// WriteRow writes a data row to the current sheet.
func (w *Writer) WriteRow(row []any) error {
	if err := w.writeCells(row); err != nil {
		return err
	}
	w.currentRow++
	return nil
}

func (w *Writer) writeCells(row []any) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}
	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the workbook to wr.
func (w *Writer) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// SaveToFile writes the workbook to disk.
func (w *Writer) SaveToFile(path string) error {
	return w.file.SaveAs(path)
}

// Close releases resources.
func (w *Writer) Close() error {
	return w.file.Close()
}

// Bookings writes records, already filtered and sorted, as one sheet to wr.
func Bookings(wr io.Writer, records []models.Booking) error {
	w := NewWriter()
	defer w.Close()

	if err := w.AddSheet(SheetName); err != nil {
		return err
	}
	if err := w.WriteHeader(Columns); err != nil {
		return err
	}
	for _, b := range records {
		if err := w.WriteRow(bookingRow(b)); err != nil {
			return fmt.Errorf("write booking %d: %w", b.ID, err)
		}
	}
	return w.Save(wr)
}

func bookingRow(b models.Booking) []any {
	return []any{
		b.BookingDate,
		slots.Format12String(b.StartTime),
		slots.Format12String(b.EndTime),
		b.Name,
		b.Email,
		b.Phone,
		b.NoOfGuests,
		b.Branch,
		b.StatusLabel(),
		b.Message,
	}
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

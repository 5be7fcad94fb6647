package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const guestSheet = "Guests"

func WriteGuestsXLSX(w io.Writer, rows []GuestRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), guestSheet); err != nil {
		return err
	}
	header := make([]any, len(guestHeader))
	for i, h := range guestHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(guestSheet, "A1", &header); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(guestHeader))
	if err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(guestSheet, "A1", lastCol+"1", style); err != nil {
		return err
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		// 数字列保持数值类型，其余按文本
		vals := []any{
			r.Name, r.Email, r.Phone, r.Rank, r.Institution, r.Status, r.RSVP, r.PlusOnes,
			r.Dietary, r.TableNumber, r.SeatNumber, yesNo(r.CheckedIn), formatTime(r.CheckInTime), r.BarcodeNumber,
		}
		if err := f.SetSheetRow(guestSheet, cell, &vals); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(guestSheet, "A", lastCol, 18); err != nil {
		return err
	}
	if err := f.SetPanes(guestSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	if err := f.AutoFilter(guestSheet, fmt.Sprintf("A1:%s%d", lastCol, len(rows)+1), nil); err != nil {
		return err
	}
	return f.Write(w)
}

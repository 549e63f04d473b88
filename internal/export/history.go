package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"fivebyfive/internal/models"
)

// SheetHistory: имя листа с историей
const SheetHistory = "History"

// FileName: имя файла, под которым выгрузка уходит в Telegram
const FileName = "history.xlsx"

var headers = []string{"ID", "Date", "Type", "Ex1", "Ex1 +", "Ex2", "Ex2 +", "Ex3", "Ex3 +"}

// HistoryWorkbook собирает xlsx со всей историей в порядке добавления
func HistoryWorkbook(entries []models.Entry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetHistory); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	// формат 22 это "m/d/yy h:mm"
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		return nil, fmt.Errorf("creating date style: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(SheetHistory, cell, h)
	}
	f.SetCellStyle(SheetHistory, "A1", "I1", headerStyle)

	for i, e := range entries {
		row := i + 2
		values := []any{
			e.ID, e.Date, string(e.Type),
			e.Ex1, e.Ex1Addition,
			e.Ex2, e.Ex2Addition,
			e.Ex3, e.Ex3Addition,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetHistory, cell, v); err != nil {
				return nil, fmt.Errorf("writing %s: %w", cell, err)
			}
		}
		f.SetCellStyle(SheetHistory, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), dateStyle)
	}

	f.SetColWidth(SheetHistory, "B", "B", 18)
	f.SetPanes(SheetHistory, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

package export

import (
	"github.com/xuri/excelize/v2"

	"canvass/model"
)

const sheetName = "Responses"

// ResponsesWorkbook renders responses as an XLSX workbook with the same
// header and row layout as the CSV export.
func ResponsesWorkbook(survey model.Survey, responses []model.Response) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	if err := setRow(f, 1, headerRow(survey)); err != nil {
		return nil, err
	}
	for i, response := range responses {
		if err := setRow(f, i+2, responseRow(survey, response)); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func setRow(f *excelize.File, row int, fields []string) error {
	for col, value := range fields {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, value); err != nil {
			return err
		}
	}
	return nil
}

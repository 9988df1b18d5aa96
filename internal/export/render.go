package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"

	"storepulse/internal/model"
)

// Columns is the header of every export, in order.
var Columns = []string{
	"store_id",
	"uptime_last_hour",
	"uptime_last_day",
	"uptime_last_week",
	"downtime_last_hour",
	"downtime_last_day",
	"downtime_last_week",
}

// Renderer encodes report rows into one export format.
type Renderer interface {
	Ext() string
	ContentType() string
	Render(entries []model.ReportEntry) ([]byte, error)
}

// NewRenderer returns the renderer for "csv", "xlsx" or "parquet".
func NewRenderer(format string, precision int) (Renderer, error) {
	if precision < 0 {
		precision = 0
	}
	switch format {
	case "", "csv":
		return csvRenderer{precision: precision}, nil
	case "xlsx":
		return xlsxRenderer{precision: precision}, nil
	case "parquet":
		return parquetRenderer{precision: precision}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func values(e model.ReportEntry) []float64 {
	return []float64{
		e.UptimeLastHour, e.UptimeLastDay, e.UptimeLastWeek,
		e.DowntimeLastHour, e.DowntimeLastDay, e.DowntimeLastWeek,
	}
}

func round(v float64, precision int) float64 {
	p := math.Pow10(precision)
	return math.Round(v*p) / p
}

type csvRenderer struct{ precision int }

func (csvRenderer) Ext() string         { return "csv" }
func (csvRenderer) ContentType() string { return "text/csv" }

func (r csvRenderer) Render(entries []model.ReportEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return nil, err
	}
	record := make([]string, len(Columns))
	for _, e := range entries {
		record[0] = e.StoreID
		for i, v := range values(e) {
			record[i+1] = strconv.FormatFloat(v, 'f', r.precision, 64)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

const sheetName = "Report"

type xlsxRenderer struct{ precision int }

func (xlsxRenderer) Ext() string { return "xlsx" }
func (xlsxRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (r xlsxRenderer) Render(entries []model.ReportEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, e := range entries {
		row := make([]any, 0, len(Columns))
		row = append(row, e.StoreID)
		for _, v := range values(e) {
			row = append(row, round(v, r.precision))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// Row is the parquet schema of one report entry.
type Row struct {
	StoreID          string  `parquet:"store_id,snappy"`
	UptimeLastHour   float64 `parquet:"uptime_last_hour,snappy"`
	UptimeLastDay    float64 `parquet:"uptime_last_day,snappy"`
	UptimeLastWeek   float64 `parquet:"uptime_last_week,snappy"`
	DowntimeLastHour float64 `parquet:"downtime_last_hour,snappy"`
	DowntimeLastDay  float64 `parquet:"downtime_last_day,snappy"`
	DowntimeLastWeek float64 `parquet:"downtime_last_week,snappy"`
}

type parquetRenderer struct{ precision int }

func (parquetRenderer) Ext() string         { return "parquet" }
func (parquetRenderer) ContentType() string { return "application/vnd.apache.parquet" }

func (r parquetRenderer) Render(entries []model.ReportEntry) ([]byte, error) {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{
			StoreID:          e.StoreID,
			UptimeLastHour:   round(e.UptimeLastHour, r.precision),
			UptimeLastDay:    round(e.UptimeLastDay, r.precision),
			UptimeLastWeek:   round(e.UptimeLastWeek, r.precision),
			DowntimeLastHour: round(e.DowntimeLastHour, r.precision),
			DowntimeLastDay:  round(e.DowntimeLastDay, r.precision),
			DowntimeLastWeek: round(e.DowntimeLastWeek, r.precision),
		}
	}

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[Row](&buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

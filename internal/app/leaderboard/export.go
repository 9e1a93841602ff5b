package leaderboard

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/platform/logger"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type Exporter interface {
	Export(ctx context.Context, testID string, w io.Writer) error
	ContentType() string
	Extension() string
}

var header = []string{"Rank", "User", "User ID", "Earned Points", "Total Points", "Submitted At"}

func row(e model.LeaderboardEntry) []string {
	return []string{
		strconv.Itoa(e.Rank),
		e.DisplayName,
		e.UserID,
		strconv.Itoa(e.EarnedPoints),
		strconv.Itoa(e.TotalPoints),
		e.SubmittedAt.UTC().Format(time.RFC3339),
	}
}

type CSVExporter struct {
	svc *Service
}

var _ Exporter = (*CSVExporter)(nil)

func NewCSVExporter(svc *Service) *CSVExporter {
	return &CSVExporter{svc: svc}
}

func (e *CSVExporter) ContentType() string { return "text/csv" }
func (e *CSVExporter) Extension() string   { return "csv" }

func (e *CSVExporter) Export(ctx context.Context, testID string, w io.Writer) error {
	entries, err := e.svc.Leaderboard(ctx, testID, 0)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header failed: %w", err)
	}
	for _, entry := range entries {
		if err := cw.Write(row(entry)); err != nil {
			return fmt.Errorf("write row failed: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type XLSXExporter struct {
	svc *Service
}

var _ Exporter = (*XLSXExporter)(nil)

func NewXLSXExporter(svc *Service) *XLSXExporter {
	return &XLSXExporter{svc: svc}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (e *XLSXExporter) Extension() string { return "xlsx" }

const sheetName = "Leaderboard"

func (e *XLSXExporter) Export(ctx context.Context, testID string, w io.Writer) error {
	entries, err := e.svc.Leaderboard(ctx, testID, 0)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error(ctx, "close excel file failed", zap.Error(err))
		}
	}()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet failed: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet failed: %w", err)
	}

	if err := writeXLSXHeader(f); err != nil {
		return err
	}
	for i, entry := range entries {
		values := []interface{}{entry.Rank, entry.DisplayName, entry.UserID, entry.EarnedPoints, entry.TotalPoints,
			entry.SubmittedAt.UTC().Format(time.RFC3339)}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("get cell name failed: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("set cell value failed: %w", err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write excel file failed: %w", err)
	}
	return nil
}

func writeXLSXHeader(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("create header style failed: %w", err)
	}

	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("get cell name failed: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return fmt.Errorf("set header value failed: %w", err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return fmt.Errorf("set header style failed: %w", err)
		}
	}
	if err := f.SetColWidth(sheetName, "A", "A", 8); err != nil {
		return fmt.Errorf("set column width failed: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "C", 24); err != nil {
		return fmt.Errorf("set column width failed: %w", err)
	}
	if err := f.SetColWidth(sheetName, "D", "F", 16); err != nil {
		return fmt.Errorf("set column width failed: %w", err)
	}
	return nil
}

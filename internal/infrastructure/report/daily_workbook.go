// Package report renders the ledger of one day as an Excel workbook.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/directory"
	"github.com/academy-hub/attendance-hub/internal/domain/timepolicy"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

const (
	SheetLedger  = "Attendance"
	SheetSummary = "Summary"
)

// LedgerHeader is the header row of the ledger sheet.
var LedgerHeader = []interface{}{
	"Person ID", "Name", "Role", "Status", "Arrival", "Late by",
	"Check-in", "Check-out", "Class time", "Schedule ref",
}

// DailyWorkbook builds the daily attendance export.
type DailyWorkbook struct {
	ledger attendance.Ledger
	people directory.Directory
}

// NewDailyWorkbook creates a workbook builder. people may be nil, in which
// case the name column stays empty.
func NewDailyWorkbook(ledger attendance.Ledger, people directory.Directory) *DailyWorkbook {
	return &DailyWorkbook{ledger: ledger, people: people}
}

// Write renders the records of date (a UTC calendar day) into w.
func (b *DailyWorkbook) Write(ctx context.Context, date time.Time, w io.Writer) error {
	records, err := b.ledger.List(ctx, attendance.Filter{Date: &date})
	if err != nil {
		return fmt.Errorf("report: list records: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetLedger); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetLedger, "A1", &LedgerHeader); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("report: header style: %w", err)
	}
	if err := f.SetRowStyle(SheetLedger, 1, 1, bold); err != nil {
		return fmt.Errorf("report: header style: %w", err)
	}

	counts := attendance.NewDayCounts(date)
	for i, rec := range records {
		counts.Add(rec)
		row := b.ledgerRow(ctx, rec)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetLedger, cell, &row); err != nil {
			return fmt.Errorf("report: write row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(SheetLedger, "A", "J", 16)

	if err := writeSummary(f, counts, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: write workbook: %w", err)
	}
	return nil
}

func (b *DailyWorkbook) ledgerRow(ctx context.Context, rec *attendance.Record) []interface{} {
	name := ""
	if b.people != nil {
		if p, err := b.people.Find(ctx, rec.PersonID, rec.Role); err == nil {
			name = p.Name
		}
	}

	lateBy := ""
	if rec.LateBy > 0 {
		lateBy = timepolicy.FormatLateBy(rec.LateBy)
	}
	classTime := ""
	if rec.ScheduledTime != nil {
		classTime = rec.ScheduledTime.String()
	}

	return []interface{}{
		rec.PersonID.String(),
		name,
		rec.Role.String(),
		rec.Status.String(),
		string(rec.Arrival),
		lateBy,
		deref(rec.CheckInTime),
		deref(rec.CheckOutTime),
		classTime,
		deref(rec.ScheduleRef),
	}
}

func writeSummary(f *excelize.File, counts *attendance.DayCounts, bold int) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("report: summary sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Date", timeutil.DateKey(counts.Date)},
		{"Total", counts.Total},
	}
	for _, s := range attendance.AllStatuses {
		rows = append(rows, []interface{}{s.String(), counts.ByStatus[s]})
	}
	rows = append(rows,
		[]interface{}{"checked_in", counts.CheckedIn},
		[]interface{}{"checked_out", counts.CheckedOut},
	)

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetSummary, cell, &rows[i]); err != nil {
			return fmt.Errorf("report: summary row: %w", err)
		}
	}
	return f.SetColStyle(SheetSummary, "A", bold)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

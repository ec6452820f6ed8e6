package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	stats "github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain"
)

// BuildUsagePDF renders a usage report: one totals line per period followed
// by the members of that period.
func BuildUsagePDF(title string, summaries []stats.UsagePeriodSummary, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, title)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Periods: %d", len(summaries)))
	pdf.Ln(8)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, s := range summaries {
		d := s.Data
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, fmt.Sprintf("%s %s", s.Type, s.Date))
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 9)
		pdf.Cell(0, 5, fmt.Sprintf("Attendance: %s days  Debt: %s days  Usage: %s  Charges: %s",
			formatFloat(d.AttendanceDays), formatFloat(d.DebtDays), money(d.UsageAmount), money(d.ChargesAmount)))
		pdf.Ln(6)

		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(60, 6, "Member", "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, "Days", "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, "Tickets", "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, "Sub. days", "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, "Debt", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Usage", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		for _, id := range d.Members.IDs() {
			m := d.Members[id]
			label := m.Name
			if label == "" {
				label = m.MemberID
			}
			pdf.CellFormat(60, 6, tr(label), "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 6, formatFloat(m.AttendanceDays), "1", 0, "R", false, 0, "")
			pdf.CellFormat(25, 6, formatFloat(m.TicketDays), "1", 0, "R", false, 0, "")
			pdf.CellFormat(25, 6, formatInt(m.SubscriptionActiveDays), "1", 0, "R", false, 0, "")
			pdf.CellFormat(20, 6, formatFloat(m.DebtDays), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, money(m.UsageAmount), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildUsageXLSX renders a usage workbook with a "periods" sheet of totals
// and a "members" sheet of per-member rows.
func BuildUsageXLSX(summaries []stats.UsagePeriodSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	periodsSheet := "periods"
	membersSheet := "members"
	if err := f.SetSheetName("Sheet1", periodsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(membersSheet); err != nil {
		return nil, err
	}

	periodHeader := []any{"Date", "Type", "Attendance days", "Ticket days", "Ticket amount",
		"Subscription days", "Subscription active days", "Subscription usage amount", "Debt days",
		"Usage amount", "Charges amount", "Charged days"}
	if err := f.SetSheetRow(periodsSheet, "A1", &periodHeader); err != nil {
		return nil, err
	}
	memberHeader := []any{"Date", "Type", "Member", "Name", "Email", "Attendance days", "Ticket days",
		"Ticket amount", "Subscription active days", "Subscription usage amount", "Debt days", "Usage amount"}
	if err := f.SetSheetRow(membersSheet, "A1", &memberHeader); err != nil {
		return nil, err
	}

	memberRow := 2
	for i, s := range summaries {
		d := s.Data
		row := []any{s.Date, string(s.Type), d.AttendanceDays, d.TicketDays, amount(d.TicketAmount),
			d.SubscriptionDays, d.SubscriptionActiveDays, amount(d.SubscriptionUsageAmount), d.DebtDays,
			amount(d.UsageAmount), amount(d.ChargesAmount), d.ChargedDays}
		if err := f.SetSheetRow(periodsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
		for _, id := range d.Members.IDs() {
			m := d.Members[id]
			mrow := []any{s.Date, string(s.Type), m.MemberID, m.Name, m.Email, m.AttendanceDays, m.TicketDays,
				amount(m.TicketAmount), m.SubscriptionActiveDays, amount(m.SubscriptionUsageAmount), m.DebtDays,
				amount(m.UsageAmount)}
			if err := f.SetSheetRow(membersSheet, fmt.Sprintf("A%d", memberRow), &mrow); err != nil {
				return nil, err
			}
			memberRow++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildIncomeXLSX renders income totals, one row per period.
func BuildIncomeXLSX(summaries []stats.IncomePeriodSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := "income"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	header := []any{"Date", "Type", "Ticket orders", "Tickets", "Tickets amount", "Subscriptions",
		"Subscriptions amount", "Memberships", "Memberships amount", "Total amount"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, s := range summaries {
		d := s.Data
		row := []any{s.Date, string(s.Type), d.TicketOrders, d.TicketsQuantity, amount(d.TicketsAmount),
			d.Subscriptions, amount(d.SubscriptionsAmount), d.Memberships, amount(d.MembershipsAmount),
			amount(d.TotalAmount)}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func amount(value decimal.Decimal) float64 {
	return value.Round(2).InexactFloat64()
}

func money(value decimal.Decimal) string {
	return value.StringFixed(2)
}

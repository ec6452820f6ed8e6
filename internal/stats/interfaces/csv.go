package interfaces

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	stats "github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain"
)

// StatsColumns is the header written by StatsCSV.
var StatsColumns = []string{
	"date",
	"type",
	"active_members",
	"new_members",
	"attendance_days",
	"ticket_days",
	"ticket_amount",
	"subscription_days",
	"subscription_amount",
	"debt_days",
	"subscription_active_days",
	"subscription_usage_amount",
	"usage_amount",
	"charges_amount",
	"income_amount",
}

// StatsCSV writes one row per period.
func StatsCSV(w io.Writer, summaries []stats.PeriodSummary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(StatsColumns); err != nil {
		return err
	}
	for _, s := range summaries {
		d := s.Data
		if err := writer.Write([]string{
			s.Date,
			string(s.Type),
			formatInt(d.ActiveMembers),
			formatInt(d.NewMembers),
			formatFloat(d.AttendanceDays),
			formatFloat(d.TicketDays),
			formatAmount(d.TicketAmount),
			formatFloat(d.SubscriptionDays),
			formatAmount(d.SubscriptionAmount),
			formatFloat(d.DebtDays),
			formatInt(d.SubscriptionActiveDays),
			formatAmount(d.SubscriptionUsageAmount),
			formatAmount(d.UsageAmount),
			formatAmount(d.ChargesAmount),
			formatAmount(d.IncomeAmount),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// UsageColumns is the header written by UsageCSV.
var UsageColumns = []string{
	"date",
	"type",
	"member_id",
	"name",
	"email",
	"attendance_days",
	"ticket_days",
	"ticket_amount",
	"subscription_days",
	"subscription_active_days",
	"subscription_usage_amount",
	"debt_days",
	"usage_amount",
}

// UsageCSV writes one row per member and period, members sorted by id.
func UsageCSV(w io.Writer, summaries []stats.UsagePeriodSummary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(UsageColumns); err != nil {
		return err
	}
	for _, s := range summaries {
		for _, id := range s.Data.Members.IDs() {
			m := s.Data.Members[id]
			if err := writer.Write([]string{
				s.Date,
				string(s.Type),
				m.MemberID,
				m.Name,
				m.Email,
				formatFloat(m.AttendanceDays),
				formatFloat(m.TicketDays),
				formatAmount(m.TicketAmount),
				formatFloat(m.SubscriptionDays),
				formatInt(m.SubscriptionActiveDays),
				formatAmount(m.SubscriptionUsageAmount),
				formatFloat(m.DebtDays),
				formatAmount(m.UsageAmount),
			}); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// IncomeColumns is the header written by IncomeCSV.
var IncomeColumns = []string{
	"date",
	"type",
	"ticket_orders",
	"tickets_quantity",
	"tickets_amount",
	"subscriptions",
	"subscriptions_amount",
	"memberships",
	"memberships_amount",
	"total_amount",
}

// IncomeCSV writes one row per period.
func IncomeCSV(w io.Writer, summaries []stats.IncomePeriodSummary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(IncomeColumns); err != nil {
		return err
	}
	for _, s := range summaries {
		d := s.Data
		if err := writer.Write([]string{
			s.Date,
			string(s.Type),
			formatInt(d.TicketOrders),
			formatInt(d.TicketsQuantity),
			formatAmount(d.TicketsAmount),
			formatInt(d.Subscriptions),
			formatAmount(d.SubscriptionsAmount),
			formatInt(d.Memberships),
			formatAmount(d.MembershipsAmount),
			formatAmount(d.TotalAmount),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// AttendanceColumns is the header written by AttendanceCSV.
var AttendanceColumns = []string{
	"date",
	"type",
	"member_id",
	"name",
	"email",
	"attendance_days",
	"ticket_days",
	"ticket_amount",
	"subscription_days",
	"subscription_amount",
	"debt_days",
}

// AttendanceCSV writes one row per attending member and period.
func AttendanceCSV(w io.Writer, summaries []stats.AttendancePeriodSummary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(AttendanceColumns); err != nil {
		return err
	}
	for _, s := range summaries {
		ids := make([]string, 0, len(s.Data.Members))
		for id := range s.Data.Members {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			m := s.Data.Members[id]
			if err := writer.Write([]string{
				s.Date,
				string(s.Type),
				m.MemberID,
				m.Name,
				m.Email,
				formatFloat(m.AttendanceDays),
				formatFloat(m.TicketDays),
				formatAmount(m.TicketAmount),
				formatFloat(m.SubscriptionDays),
				formatAmount(m.SubscriptionAmount),
				formatFloat(m.DebtDays),
			}); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatInt(value int) string {
	return strconv.Itoa(value)
}

func formatAmount(value decimal.Decimal) string {
	return value.String()
}

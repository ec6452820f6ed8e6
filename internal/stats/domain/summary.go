package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
	"github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain/coverage"
)

// CoverageTotals sums how attended days were paid for. TicketDays counts only
// the ticket-covered part; the uncovered part is in DebtDays.
type CoverageTotals struct {
	TicketDays         float64         `json:"ticketDays"`
	TicketAmount       decimal.Decimal `json:"ticketAmount"`
	SubscriptionDays   float64         `json:"subscriptionDays"`
	SubscriptionAmount decimal.Decimal `json:"subscriptionAmount"`
	DebtDays           float64         `json:"debtDays"`
}

// Add accumulates one coverage result.
func (c *CoverageTotals) Add(r coverage.Result) {
	switch r.Type {
	case coverage.TypeSubscription:
		c.SubscriptionDays += r.Value
		c.SubscriptionAmount = c.SubscriptionAmount.Add(r.Amount)
	case coverage.TypeTicket:
		c.TicketDays += r.TicketValue()
		c.TicketAmount = c.TicketAmount.Add(r.Amount)
		c.DebtDays += r.DebtValue()
	}
}

// Merge adds other into c.
func (c *CoverageTotals) Merge(other CoverageTotals) {
	c.TicketDays += other.TicketDays
	c.TicketAmount = c.TicketAmount.Add(other.TicketAmount)
	c.SubscriptionDays += other.SubscriptionDays
	c.SubscriptionAmount = c.SubscriptionAmount.Add(other.SubscriptionAmount)
	c.DebtDays += other.DebtDays
}

// StatsData is the cached content of a period summary.
type StatsData struct {
	ActiveMembers  int     `json:"activeMembers"`
	NewMembers     int     `json:"newMembers"`
	AttendanceDays float64 `json:"attendanceDays"`
	CoverageTotals
	SubscriptionActiveDays  int             `json:"subscriptionActiveDays"`
	SubscriptionUsageAmount decimal.Decimal `json:"subscriptionUsageAmount"`
	UsageAmount             decimal.Decimal `json:"usageAmount"`
	ChargesAmount           decimal.Decimal `json:"chargesAmount"`
	IncomeAmount            decimal.Decimal `json:"incomeAmount"`
}

// PeriodSummary is the statistics of one period. Closed periods are cached.
type PeriodSummary struct {
	Date string     `json:"date"`
	Type PeriodType `json:"type"`
	Data StatsData  `json:"data"`
}

// UsageTotals is the usage of one member, or of everyone, over a period.
type UsageTotals struct {
	AttendanceDays float64 `json:"attendanceDays"`
	CoverageTotals
	// SubscriptionActiveDays counts every day of an active subscription,
	// attended or not.
	SubscriptionActiveDays  int             `json:"subscriptionActiveDays"`
	SubscriptionUsageAmount decimal.Decimal `json:"subscriptionUsageAmount"`
	UsageAmount             decimal.Decimal `json:"usageAmount"`
}

// AddCoverage accumulates an attended day. Subscription amounts are
// attributed through AddSubscriptionDay instead.
func (u *UsageTotals) AddCoverage(r coverage.Result) {
	u.AttendanceDays += r.Value
	u.CoverageTotals.Add(r)
	if r.Type == coverage.TypeTicket {
		u.UsageAmount = u.UsageAmount.Add(r.Amount)
	}
}

// AddSubscriptionDay attributes one day of an active subscription.
func (u *UsageTotals) AddSubscriptionDay(dailyRate decimal.Decimal) {
	u.SubscriptionActiveDays++
	u.SubscriptionUsageAmount = u.SubscriptionUsageAmount.Add(dailyRate)
	u.UsageAmount = u.UsageAmount.Add(dailyRate)
}

// Merge adds other into u.
func (u *UsageTotals) Merge(other UsageTotals) {
	u.AttendanceDays += other.AttendanceDays
	u.CoverageTotals.Merge(other.CoverageTotals)
	u.SubscriptionActiveDays += other.SubscriptionActiveDays
	u.SubscriptionUsageAmount = u.SubscriptionUsageAmount.Add(other.SubscriptionUsageAmount)
	u.UsageAmount = u.UsageAmount.Add(other.UsageAmount)
}

// MemberUsage is the usage of a single member.
type MemberUsage struct {
	MemberID string `json:"memberId"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	UsageTotals
}

// Merge adds other into m. Identity fields are filled when missing.
func (m *MemberUsage) Merge(other *MemberUsage) {
	if other == nil {
		return
	}
	if m.Name == "" {
		m.Name = other.Name
	}
	if m.Email == "" {
		m.Email = other.Email
	}
	m.UsageTotals.Merge(other.UsageTotals)
}

// MemberUsages groups usage by member id.
type MemberUsages map[string]*MemberUsage

// Get returns the accumulator of memberID, creating it when absent.
func (m MemberUsages) Get(memberID string) *MemberUsage {
	u, ok := m[memberID]
	if !ok {
		u = &MemberUsage{MemberID: memberID}
		m[memberID] = u
	}
	return u
}

// Merge adds every member of other into m.
func (m MemberUsages) Merge(other MemberUsages) {
	for id, u := range other {
		m.Get(id).Merge(u)
	}
}

// Total sums all members.
func (m MemberUsages) Total() UsageTotals {
	var total UsageTotals
	for _, id := range m.IDs() {
		total.Merge(m[id].UsageTotals)
	}
	return total
}

// IDs returns the member ids in ascending order.
func (m MemberUsages) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Label fills the identity fields from the member profile.
func (m *MemberUsage) Label(member *ledger.Member) {
	if member == nil {
		return
	}
	m.Name = member.DisplayName()
	m.Email = member.Email
}

// UsageData is the usage of a period: totals, charges and per-member rollups.
type UsageData struct {
	UsageTotals
	ChargesAmount decimal.Decimal `json:"chargesAmount"`
	ChargedDays   int             `json:"chargedDays"`
	Members       MemberUsages    `json:"members"`
}

// UsagePeriodSummary is the usage of one period.
type UsagePeriodSummary struct {
	Date string     `json:"date"`
	Type PeriodType `json:"type"`
	Data UsageData  `json:"data"`
}

// MemberAttendance is the attendance of one member over a period.
type MemberAttendance struct {
	MemberID       string  `json:"memberId"`
	Name           string  `json:"name,omitempty"`
	Email          string  `json:"email,omitempty"`
	AttendanceDays float64 `json:"attendanceDays"`
	CoverageTotals
}

// AttendanceData lists the members who attended in a period.
type AttendanceData struct {
	AttendanceDays float64 `json:"attendanceDays"`
	CoverageTotals
	Members map[string]*MemberAttendance `json:"members"`
}

// AttendancePeriodSummary is the attendance of one period.
type AttendancePeriodSummary struct {
	Date string         `json:"date"`
	Type PeriodType     `json:"type"`
	Data AttendanceData `json:"data"`
}

// IncomeData sums purchases made in a period.
type IncomeData struct {
	TicketOrders        int             `json:"ticketOrders"`
	TicketsQuantity     int             `json:"ticketsQuantity"`
	TicketsAmount       decimal.Decimal `json:"ticketsAmount"`
	Subscriptions       int             `json:"subscriptions"`
	SubscriptionsAmount decimal.Decimal `json:"subscriptionsAmount"`
	Memberships         int             `json:"memberships"`
	MembershipsAmount   decimal.Decimal `json:"membershipsAmount"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
}

// AddTicketOrder accumulates a ticket purchase.
func (d *IncomeData) AddTicketOrder(o ledger.TicketOrder) {
	price := decimal.NewFromFloat(o.Price)
	d.TicketOrders++
	d.TicketsQuantity += o.TicketsQuantity
	d.TicketsAmount = d.TicketsAmount.Add(price)
	d.TotalAmount = d.TotalAmount.Add(price)
}

// AddSubscription accumulates a subscription purchase.
func (d *IncomeData) AddSubscription(s ledger.Subscription) {
	price := decimal.NewFromFloat(s.Price)
	d.Subscriptions++
	d.SubscriptionsAmount = d.SubscriptionsAmount.Add(price)
	d.TotalAmount = d.TotalAmount.Add(price)
}

// AddMembership accumulates a membership fee.
func (d *IncomeData) AddMembership(m ledger.Membership) {
	price := decimal.NewFromFloat(m.Price)
	d.Memberships++
	d.MembershipsAmount = d.MembershipsAmount.Add(price)
	d.TotalAmount = d.TotalAmount.Add(price)
}

// Merge adds other into d.
func (d *IncomeData) Merge(other IncomeData) {
	d.TicketOrders += other.TicketOrders
	d.TicketsQuantity += other.TicketsQuantity
	d.TicketsAmount = d.TicketsAmount.Add(other.TicketsAmount)
	d.Subscriptions += other.Subscriptions
	d.SubscriptionsAmount = d.SubscriptionsAmount.Add(other.SubscriptionsAmount)
	d.Memberships += other.Memberships
	d.MembershipsAmount = d.MembershipsAmount.Add(other.MembershipsAmount)
	d.TotalAmount = d.TotalAmount.Add(other.TotalAmount)
}

// IncomePeriodSummary is the income of one period.
type IncomePeriodSummary struct {
	Date string     `json:"date"`
	Type PeriodType `json:"type"`
	Data IncomeData `json:"data"`
}

// MemberCoverageReport is the day-by-day coverage of one member.
type MemberCoverageReport struct {
	MemberID       string            `json:"memberId"`
	Name           string            `json:"name,omitempty"`
	Email          string            `json:"email,omitempty"`
	From           string            `json:"from"`
	To             string            `json:"to"`
	Days           []coverage.Result `json:"days"`
	AttendanceDays float64           `json:"attendanceDays"`
	CoverageTotals
	// OpeningBalance is the ticket balance at the end of the day before From.
	OpeningBalance float64 `json:"openingBalance"`
	// ClosingBalance is the ticket balance at the end of To. Negative when
	// the member owes tickets.
	ClosingBalance float64 `json:"closingBalance"`
	// AccumulatedDebt is all debt recorded up to To, including before From.
	AccumulatedDebt float64 `json:"accumulatedDebt"`
}

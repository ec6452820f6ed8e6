package coverage

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
)

// RateProvider returns the ticket price applying at a day.
type RateProvider interface {
	TicketRateAt(day time.Time) (decimal.Decimal, bool)
}

// Timeline is the coverage of every attended day of one member, computed in a
// single chronological pass.
type Timeline struct {
	results []Result
	byDate  map[time.Time]int
	tickets []ledger.TicketOrder
}

// BuildTimeline resolves coverage for all activity of a member. Subscriptions
// take precedence over tickets; tickets are consumed in date order and any
// shortfall becomes permanent debt on that day.
func BuildTimeline(
	memberID string,
	activity []ledger.MemberActivity,
	tickets []ledger.TicketOrder,
	subscriptions []ledger.Subscription,
	rates RateProvider,
) *Timeline {
	days := make(map[time.Time]float64, len(activity))
	for _, a := range activity {
		v := ledger.ClampActivityValue(a.Value)
		day := ledger.TruncateDay(a.Date)
		if v == 0 {
			delete(days, day)
			continue
		}
		days[day] = v
	}
	ordered := make([]time.Time, 0, len(days))
	for day := range days {
		ordered = append(ordered, day)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	sortedTickets := append([]ledger.TicketOrder(nil), tickets...)
	sort.SliceStable(sortedTickets, func(i, j int) bool {
		return sortedTickets[i].PurchaseDate.Before(sortedTickets[j].PurchaseDate)
	})

	t := &Timeline{
		results: make([]Result, 0, len(ordered)),
		byDate:  make(map[time.Time]int, len(ordered)),
		tickets: sortedTickets,
	}

	var purchased, consumed float64
	next := 0
	for _, day := range ordered {
		value := days[day]
		for next < len(sortedTickets) && !ledger.TruncateDay(sortedTickets[next].PurchaseDate).After(day) {
			purchased += float64(sortedTickets[next].TicketsQuantity)
			next++
		}

		result := Result{MemberID: memberID, Date: day, Value: value}
		if sub, ok := SelectSubscription(subscriptions, day); ok {
			result.Type = TypeSubscription
			result.SubscriptionID = sub.ID
			result.Amount = DailyRate(sub).Mul(decimal.NewFromFloat(value))
		} else {
			covered := clamp(purchased-consumed, 0, value)
			result.Type = TypeTicket
			if rate, ok := rates.TicketRateAt(day); ok {
				result.Amount = rate.Mul(decimal.NewFromFloat(covered))
			}
			if covered < value {
				result.Debt = &Debt{Value: value - covered}
			}
			consumed += value
		}
		t.byDate[day] = len(t.results)
		t.results = append(t.results, result)
	}
	return t
}

// On returns the coverage of day, false when the member did not attend.
func (t *Timeline) On(day time.Time) (Result, bool) {
	i, ok := t.byDate[ledger.TruncateDay(day)]
	if !ok {
		return Result{}, false
	}
	return t.results[i], true
}

// Results returns every covered day in ascending order.
func (t *Timeline) Results() []Result {
	return append([]Result(nil), t.results...)
}

// Between returns the covered days within [from, to].
func (t *Timeline) Between(from, to time.Time) []Result {
	from = ledger.TruncateDay(from)
	to = ledger.TruncateDay(to)
	start := sort.Search(len(t.results), func(i int) bool { return !t.results[i].Date.Before(from) })
	out := make([]Result, 0)
	for i := start; i < len(t.results) && !t.results[i].Date.After(to); i++ {
		out = append(out, t.results[i])
	}
	return out
}

// FirstActivity returns the earliest attended day.
func (t *Timeline) FirstActivity() (time.Time, bool) {
	if len(t.results) == 0 {
		return time.Time{}, false
	}
	return t.results[0].Date, true
}

// BalanceAfter is the ticket balance at the end of day: tickets purchased up
// to day minus attendance charged to tickets up to day. Negative when in debt.
func (t *Timeline) BalanceAfter(day time.Time) float64 {
	day = ledger.TruncateDay(day)
	var balance float64
	for _, o := range t.tickets {
		if ledger.TruncateDay(o.PurchaseDate).After(day) {
			break
		}
		balance += float64(o.TicketsQuantity)
	}
	for _, r := range t.results {
		if r.Date.After(day) {
			break
		}
		if r.Type == TypeTicket {
			balance -= r.Value
		}
	}
	return balance
}

// SelectSubscription picks the subscription covering day. When several cover
// it the latest start date wins, then the greatest id.
func SelectSubscription(subscriptions []ledger.Subscription, day time.Time) (ledger.Subscription, bool) {
	var (
		best  ledger.Subscription
		found bool
	)
	for _, s := range subscriptions {
		if !s.Covers(day) {
			continue
		}
		if !found || s.StartDate.After(best.StartDate) ||
			(s.StartDate.Equal(best.StartDate) && s.ID > best.ID) {
			best = s
			found = true
		}
	}
	return best, found
}

// DailyRate is the subscription price spread over its window days.
func DailyRate(s ledger.Subscription) decimal.Decimal {
	days := s.WindowDays()
	if days <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(s.Price).Div(decimal.NewFromInt(int64(days)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

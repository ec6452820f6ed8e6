package ledger

import "errors"

var (
	// ErrInvalidDate is returned when a date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("ledger: invalid date")
	// ErrEmptyMemberID is returned when a record has no member.
	ErrEmptyMemberID = errors.New("ledger: empty member id")
	// ErrInvalidActivityValue is returned when an attendance value is outside [0, 1].
	ErrInvalidActivityValue = errors.New("ledger: invalid activity value")
	// ErrInvalidQuantity is returned when a ticket order has a negative quantity.
	ErrInvalidQuantity = errors.New("ledger: invalid tickets quantity")
	// ErrNegativePrice is returned when a purchase has a negative price.
	ErrNegativePrice = errors.New("ledger: negative price")
	// ErrEmptyID is returned when a purchase has no identifier.
	ErrEmptyID = errors.New("ledger: empty id")
)

package purchase

import (
	"fmt"
	"strings"
)

type AccountType string

const (
	AccountPersonal AccountType = "personal"
	AccountTeam     AccountType = "team"
)

const maxQuantity = 1000

// CartItem is one line of the browser cart.
type CartItem struct {
	CourseID string `json:"courseId"`
	Quantity int64  `json:"quantity"`
}

type Cart []CartItem

// Validate checks the cart shape only; course existence is checked against the
// price catalog by the caller.
func (c Cart) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrInvalidCart)
	}
	seen := make(map[string]struct{}, len(c))
	for i, item := range c {
		id := strings.TrimSpace(item.CourseID)
		if id == "" {
			return fmt.Errorf("%w: item %d has no course id", ErrInvalidCart, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %q has quantity %d", ErrInvalidCart, id, item.Quantity)
		}
		if item.Quantity > maxQuantity {
			return fmt.Errorf("%w: item %q exceeds %d seats", ErrInvalidCart, id, maxQuantity)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: course %q listed twice", ErrInvalidCart, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (c Cart) TotalQuantity() int64 {
	var total int64
	for _, item := range c {
		total += item.Quantity
	}
	return total
}

// AccountType is personal for exactly one seat and team for anything more.
func (c Cart) AccountType() AccountType {
	return AccountTypeFor(c.TotalQuantity())
}

func AccountTypeFor(totalQuantity int64) AccountType {
	if totalQuantity == 1 {
		return AccountPersonal
	}
	return AccountTeam
}

package purchase

import "errors"

var (
	ErrInvalidCart         = errors.New("invalid cart")
	ErrUnknownCourse       = errors.New("unknown course")
	ErrUnknownPriceMapping = errors.New("no course mapped to price")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrUpstream            = errors.New("payment provider error")
	ErrDatabase            = errors.New("database error")
	ErrAccountResolution   = errors.New("account resolution failed")
	ErrNotPurchase         = errors.New("session is not a training purchase")
	ErrNotPaid             = errors.New("session is not paid")
)

// IsPermanent reports whether retrying the same input can never succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrUnknownPriceMapping) ||
		errors.Is(err, ErrUnknownCourse) ||
		errors.Is(err, ErrInvalidCart) ||
		errors.Is(err, ErrNotPurchase)
}

package accounts

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	nonSlug   = regexp.MustCompile(`[^a-z0-9\-]+`)
	multiDash = regexp.MustCompile(`-+`)
)

// MakeSlug generates a URL-safe base slug from a display name.
// Example: "Acme Logistics" -> "acme-logistics"
func MakeSlug(name string) string {
	base := strings.ToLower(strings.TrimSpace(name))
	base = strings.ReplaceAll(base, " ", "-")
	base = nonSlug.ReplaceAllString(base, "")
	base = multiDash.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")

	if base == "" {
		base = "account"
	}
	return base
}

// AccountSlug makes the slug unique by suffixing part of the account id.
func AccountSlug(name string, id uuid.UUID) string {
	return MakeSlug(name) + "-" + strings.ReplaceAll(id.String(), "-", "")[:8]
}

// TeamName is the default name of a team account created for a purchase.
func TeamName(buyerName string) string {
	buyerName = strings.TrimSpace(buyerName)
	if buyerName == "" {
		return "Training Team"
	}
	return buyerName + "'s Team"
}

package accounts

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestMakeSlug(t *testing.T) {
	cases := map[string]string{
		"Acme Logistics":      "acme-logistics",
		"  Déjà  Vu  Freight ": "dj-vu-freight",
		"!!!":                 "account",
		"a--b":                "a-b",
	}
	for in, want := range cases {
		if got := MakeSlug(in); got != want {
			t.Errorf("MakeSlug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAccountSlugIsStablePerID(t *testing.T) {
	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	got := AccountSlug("Jane Doe's Team", id)
	if got != "jane-does-team-0f8fad5b" {
		t.Fatalf("AccountSlug = %q", got)
	}
	if !strings.HasPrefix(AccountSlug("", id), "account-") {
		t.Fatalf("empty name should fall back to account prefix")
	}
}

func TestTeamName(t *testing.T) {
	if got := TeamName("Jane Doe"); got != "Jane Doe's Team" {
		t.Fatalf("TeamName = %q", got)
	}
	if got := TeamName("  "); got != "Training Team" {
		t.Fatalf("TeamName(blank) = %q", got)
	}
}

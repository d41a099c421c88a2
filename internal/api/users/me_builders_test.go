package users

import (
	"testing"

	"compliance-training/internal/domain/accounts"

	"github.com/google/uuid"
)

func TestBuildAccountDTOsOrdersPersonalFirst(t *testing.T) {
	team := &accounts.Account{ID: uuid.New(), Name: "Dana's Team"}
	shared := &accounts.Account{ID: uuid.New(), Name: "Depot Crew"}
	personal := &accounts.Account{ID: uuid.New(), Name: "Dana", IsPersonal: true}

	got := BuildAccountDTOs([]accounts.Membership{
		{Account: team, Role: accounts.RoleTeamManager},
		{Account: shared, Role: accounts.RoleMember},
		{Account: personal, Role: accounts.RoleOwner},
		{Role: accounts.RoleMember},
	})

	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if !got[0].IsPersonal || got[0].SeatsURL != nil {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].SeatsURL == nil || *got[1].SeatsURL != "/teams/"+team.ID.String()+"/seats" {
		t.Fatalf("manager entry = %+v", got[1])
	}
	if got[2].SeatsURL != nil {
		t.Fatal("plain members must not get the seat page")
	}
}

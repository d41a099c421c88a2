package users

import (
	"compliance-training/internal/domain/accounts"
	"compliance-training/internal/domain/users"
)

func BuildUserDTO(u users.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Lastname:     u.Lastname,
		Role:         u.Role,
		AuthProvider: u.AuthProvider,
	}
}

// BuildAccountDTOs lists personal accounts first. Team managers get a link to
// the seat page.
func BuildAccountDTOs(memberships []accounts.Membership) []AccountDTO {
	out := make([]AccountDTO, 0, len(memberships))
	var teams []AccountDTO
	for _, m := range memberships {
		if m.Account == nil {
			continue
		}
		dto := AccountDTO{
			ID:         m.Account.ID,
			Name:       m.Account.Name,
			Slug:       m.Account.Slug,
			IsPersonal: m.Account.IsPersonal,
			Role:       m.Role,
		}
		if m.Account.IsPersonal {
			out = append(out, dto)
			continue
		}
		if m.Role == accounts.RoleTeamManager || m.Role == accounts.RoleOwner {
			u := "/teams/" + m.Account.ID.String() + "/seats"
			dto.SeatsURL = &u
		}
		teams = append(teams, dto)
	}
	return append(out, teams...)
}

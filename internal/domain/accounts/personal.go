package accounts

import (
	"errors"
	"fmt"

	"compliance-training/internal/domain/users"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnsurePersonalAccount returns the user's personal account, creating it and
// the owner membership when missing. Must be called after the user has an ID.
//
// db is passed in so this package never imports compliance-training/database.
func EnsurePersonalAccount(db *gorm.DB, user *users.User) (*Account, error) {
	if user == nil {
		return nil, fmt.Errorf("user is nil")
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("user ID missing (call EnsurePersonalAccount after Create)")
	}

	var acct Account
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("owner_user_id = ? AND is_personal = true", user.ID).First(&acct).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		acct = Account{
			ID:          uuid.New(),
			IsPersonal:  true,
			OwnerUserID: user.ID,
			Name:        user.DisplayName(),
		}
		acct.Slug = AccountSlug(acct.Name, acct.ID)
		if err := tx.Create(&acct).Error; err != nil {
			return err
		}
		return tx.Create(&Membership{AccountID: acct.ID, UserID: user.ID, Role: RoleOwner}).Error
	})
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

package purchase

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

const (
	// TypeTrainingPurchase marks sessions this service created.
	TypeTrainingPurchase = "training-purchase"

	IntentVersion = 1
)

const (
	metaType              = "type"
	metaVersion           = "intentVersion"
	metaAccountType       = "accountType"
	metaPurchaseAccountID = "purchaseAccountId"
	metaUserID            = "userId"
	metaItems             = "items"
)

// Intent is the purchase context carried through the payment provider in the
// session metadata. It is written once at checkout and read by the webhook and
// the redirect page.
type Intent struct {
	Version           int
	AccountType       AccountType
	PurchaseAccountID uuid.UUID
	UserID            uint
	Items             Cart
}

func NewIntent(userID uint, purchaseAccountID uuid.UUID, cart Cart) Intent {
	return Intent{
		Version:           IntentVersion,
		AccountType:       cart.AccountType(),
		PurchaseAccountID: purchaseAccountID,
		UserID:            userID,
		Items:             cart,
	}
}

func (i Intent) Metadata() (map[string]string, error) {
	items, err := json.Marshal(i.Items)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	return map[string]string{
		metaType:              TypeTrainingPurchase,
		metaVersion:           strconv.Itoa(i.Version),
		metaAccountType:       string(i.AccountType),
		metaPurchaseAccountID: i.PurchaseAccountID.String(),
		metaUserID:            strconv.FormatUint(uint64(i.UserID), 10),
		metaItems:             string(items),
	}, nil
}

// ParseIntent decodes session metadata. Sessions without the purchase marker
// yield ErrNotPurchase. A missing version is read as version 1, which is what
// sessions opened before versioning carried.
func ParseIntent(md map[string]string) (Intent, error) {
	if md[metaType] != TypeTrainingPurchase {
		return Intent{}, ErrNotPurchase
	}

	in := Intent{Version: IntentVersion}
	if v := md[metaVersion]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Intent{}, fmt.Errorf("invalid intent version %q", v)
		}
		if n > IntentVersion || n < 1 {
			return Intent{}, fmt.Errorf("unsupported intent version %d", n)
		}
		in.Version = n
	}

	switch AccountType(md[metaAccountType]) {
	case AccountPersonal:
		in.AccountType = AccountPersonal
	case AccountTeam:
		in.AccountType = AccountTeam
	default:
		return Intent{}, fmt.Errorf("invalid account type %q", md[metaAccountType])
	}

	uid, err := strconv.ParseUint(md[metaUserID], 10, 64)
	if err != nil || uid == 0 {
		return Intent{}, fmt.Errorf("invalid user id %q", md[metaUserID])
	}
	in.UserID = uint(uid)

	if raw := md[metaPurchaseAccountID]; raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Intent{}, fmt.Errorf("invalid purchase account id %q: %w", raw, err)
		}
		in.PurchaseAccountID = id
	}

	if raw := md[metaItems]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Items); err != nil {
			return Intent{}, fmt.Errorf("invalid items: %w", err)
		}
	}
	return in, nil
}

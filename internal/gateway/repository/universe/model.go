package universe

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNotFound = errors.New("universe not found")
	ErrInvalid  = errors.New("invalid universe")
)

// Universe names one deployed timeline contract.
type Universe struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Contract    string    `json:"contract"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func normalize(u Universe) Universe {
	u.ID = strings.TrimSpace(u.ID)
	u.Name = strings.TrimSpace(u.Name)
	u.Description = strings.TrimSpace(u.Description)
	u.Contract = strings.TrimSpace(u.Contract)
	if common.IsHexAddress(u.Contract) {
		u.Contract = common.HexToAddress(u.Contract).Hex()
	}
	return u
}

func validate(u Universe) error {
	if u.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if u.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if !common.IsHexAddress(u.Contract) {
		return fmt.Errorf("%w: contract %q is not an address", ErrInvalid, u.Contract)
	}
	return nil
}

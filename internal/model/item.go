package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Item is a resellable unit of returned inventory listed by a partner.
type Item struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Price         decimal.Decimal `json:"price"`
	Condition     string          `json:"condition"`
	Category      string          `json:"category,omitempty"`
	Image         string          `json:"image,omitempty"`
	Quantity      int             `json:"quantity"`
	PartnerID     int64           `json:"partnerId"`
	Location      string          `json:"location,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Savings is what one unit saves against the original retail price.
func (i Item) Savings() decimal.Decimal {
	return i.OriginalPrice.Sub(i.Price)
}

// Item conditions.
const (
	ConditionNew     = "new"
	ConditionUsed    = "used"
	ConditionDamaged = "damaged"
	ConditionLikeNew = "like-new"
	ConditionOpenBox = "open-box"
)

// ValidCondition reports whether c is a known item condition.
func ValidCondition(c string) bool {
	switch c {
	case ConditionNew, ConditionUsed, ConditionDamaged, ConditionLikeNew, ConditionOpenBox:
		return true
	}
	return false
}

// ValidateItem checks the fields a listing must carry before it is sent or stored.
// A listing never sells above its original price.
func ValidateItem(it *Item) error {
	if strings.TrimSpace(it.Name) == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if it.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if it.OriginalPrice.IsZero() {
		it.OriginalPrice = it.Price
	}
	if it.Price.GreaterThan(it.OriginalPrice) {
		return fmt.Errorf("%w: price %s exceeds original price %s", ErrValidation, it.Price, it.OriginalPrice)
	}
	if it.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrValidation)
	}
	if it.Condition == "" {
		it.Condition = ConditionUsed
	}
	if !ValidCondition(it.Condition) {
		return fmt.Errorf("%w: unknown condition %q", ErrValidation, it.Condition)
	}
	return nil
}

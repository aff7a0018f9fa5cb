package policy

import (
	"fmt"

	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
)

// Policy describes how a return for one reason is refunded and shipped back.
type Policy struct {
	CustomerPaysShipping  bool `json:"customerPaysShipping"`
	ShippingFeePercentage int  `json:"shippingFeePercentage"`
	RestoreInventory      bool `json:"restoreInventory"`
	RefundPercentage      int  `json:"refundPercentage"`
	RequiresApproval      bool `json:"requiresApproval"`
}

// Validate checks both percentages are within 0..100.
func (p Policy) Validate() error {
	if p.RefundPercentage < 0 || p.RefundPercentage > 100 {
		return fmt.Errorf("refund percentage %d out of range", p.RefundPercentage)
	}
	if p.ShippingFeePercentage < 0 || p.ShippingFeePercentage > 100 {
		return fmt.Errorf("shipping fee percentage %d out of range", p.ShippingFeePercentage)
	}
	return nil
}

// Table maps a reason to its policy. Reasons without an entry use CHANGE_MIND.
type Table map[enums.ReturnReason]Policy

// Defaults returns the built-in policy table.
func Defaults() Table {
	return Table{
		enums.ReturnReasonDefective: {
			RestoreInventory: false,
			RefundPercentage: 100,
		},
		enums.ReturnReasonWrongItem: {
			RestoreInventory: true,
			RefundPercentage: 100,
		},
		enums.ReturnReasonDamagedShipping: {
			RestoreInventory: false,
			RefundPercentage: 100,
		},
		enums.ReturnReasonChangeMind: {
			CustomerPaysShipping:  true,
			ShippingFeePercentage: 100,
			RestoreInventory:      true,
			RefundPercentage:      90,
			RequiresApproval:      true,
		},
	}
}

// For resolves the policy for a reason.
func (t Table) For(reason enums.ReturnReason) Policy {
	if p, ok := t[reason]; ok {
		return p
	}
	if p, ok := t[enums.ReturnReasonChangeMind]; ok {
		return p
	}
	return Defaults()[enums.ReturnReasonChangeMind]
}

// WithOverrides returns a copy of the table with stored rows applied on top.
// Rows carrying an unknown reason or out of range percentages are skipped.
func (t Table) WithOverrides(rows []models.ReturnPolicy) Table {
	merged := make(Table, len(t)+len(rows))
	for reason, p := range t {
		merged[reason] = p
	}
	for _, row := range rows {
		if !row.Reason.IsValid() {
			continue
		}
		p := FromModel(row)
		if p.Validate() != nil {
			continue
		}
		merged[row.Reason] = p
	}
	return merged
}

// FromModel converts a stored override row.
func FromModel(row models.ReturnPolicy) Policy {
	return Policy{
		CustomerPaysShipping:  row.CustomerPaysShipping,
		ShippingFeePercentage: row.ShippingFeePercentage,
		RestoreInventory:      row.RestoreInventory,
		RefundPercentage:      row.RefundPercentage,
		RequiresApproval:      row.RequiresApproval,
	}
}

// ToModel converts a policy into its storage row.
func (p Policy) ToModel(reason enums.ReturnReason) models.ReturnPolicy {
	return models.ReturnPolicy{
		Reason:                reason,
		CustomerPaysShipping:  p.CustomerPaysShipping,
		ShippingFeePercentage: p.ShippingFeePercentage,
		RestoreInventory:      p.RestoreInventory,
		RefundPercentage:      p.RefundPercentage,
		RequiresApproval:      p.RequiresApproval,
	}
}

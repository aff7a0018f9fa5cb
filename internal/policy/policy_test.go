package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/returns-engine/pkg/db/dbtest"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
)

func TestDefaultsMatchReasonTable(t *testing.T) {
	table := Defaults()

	defective := table.For(enums.ReturnReasonDefective)
	if defective.RefundPercentage != 100 || defective.RestoreInventory || defective.CustomerPaysShipping {
		t.Fatalf("unexpected DEFECTIVE policy %+v", defective)
	}
	wrongItem := table.For(enums.ReturnReasonWrongItem)
	if !wrongItem.RestoreInventory || wrongItem.RequiresApproval {
		t.Fatalf("unexpected WRONG_ITEM policy %+v", wrongItem)
	}
	changeMind := table.For(enums.ReturnReasonChangeMind)
	if changeMind.RefundPercentage != 90 || !changeMind.CustomerPaysShipping || changeMind.ShippingFeePercentage != 100 || !changeMind.RequiresApproval {
		t.Fatalf("unexpected CHANGE_MIND policy %+v", changeMind)
	}
}

func TestForFallsBackToChangeMind(t *testing.T) {
	table := Defaults()
	for _, reason := range []enums.ReturnReason{enums.ReturnReasonWrongSize, enums.ReturnReasonNotAsDescribed, "BOGUS"} {
		if got := table.For(reason); got != table[enums.ReturnReasonChangeMind] {
			t.Fatalf("%s should fall back to CHANGE_MIND, got %+v", reason, got)
		}
	}
	if got := (Table{}).For(enums.ReturnReasonDefective); got.RefundPercentage != 90 {
		t.Fatalf("empty table should fall back to built-in CHANGE_MIND, got %+v", got)
	}
}

func TestWithOverridesSkipsInvalidRows(t *testing.T) {
	base := Defaults()
	merged := base.WithOverrides([]models.ReturnPolicy{
		{Reason: enums.ReturnReasonWrongSize, RefundPercentage: 95, RestoreInventory: true},
		{Reason: enums.ReturnReasonDefective, RefundPercentage: 150},
		{Reason: "UNKNOWN", RefundPercentage: 10},
	})

	if merged.For(enums.ReturnReasonWrongSize).RefundPercentage != 95 {
		t.Fatalf("override not applied")
	}
	if merged.For(enums.ReturnReasonDefective).RefundPercentage != 100 {
		t.Fatalf("out of range override should be skipped")
	}
	if _, ok := merged["UNKNOWN"]; ok {
		t.Fatalf("unknown reason should be skipped")
	}
	if base.For(enums.ReturnReasonWrongSize).RefundPercentage != 90 {
		t.Fatalf("base table must not be mutated")
	}
}

func TestStoreUpsertAndSeed(t *testing.T) {
	ctx := context.Background()
	store := NewStore(dbtest.Open(t))

	seeded, err := store.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, seeded)

	require.NoError(t, store.Upsert(ctx, enums.ReturnReasonChangeMind, Policy{
		CustomerPaysShipping:  true,
		ShippingFeePercentage: 50,
		RestoreInventory:      true,
		RefundPercentage:      80,
	}))

	again, err := store.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, again)

	table, err := store.Table(ctx)
	require.NoError(t, err)
	changeMind := table.For(enums.ReturnReasonChangeMind)
	assert.Equal(t, 80, changeMind.RefundPercentage)
	assert.Equal(t, 50, changeMind.ShippingFeePercentage)
	assert.Equal(t, 80, table.For(enums.ReturnReasonWrongSize).RefundPercentage)
}

func TestStoreUpsertValidates(t *testing.T) {
	store := NewStore(dbtest.Open(t))
	err := store.Upsert(context.Background(), enums.ReturnReasonDefective, Policy{RefundPercentage: -1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = store.Upsert(context.Background(), "NOPE", Policy{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

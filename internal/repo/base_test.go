package repo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/internal/repo"
	"github.com/angelmondragon/returns-engine/pkg/db/dbtest"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
)

func TestFindOneReportsMissingRowsAsNil(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.User(t, conn, enums.UserRoleStaff)

	found, err := repo.FindOne[models.User](conn.Where("id = ?", user.ID))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, enums.UserRoleStaff, found.Role)

	missing, err := repo.FindOne[models.User](conn.Where("id = ?", uuid.New()))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMustFindMapsErrors(t *testing.T) {
	conn := dbtest.Open(t)
	id := uuid.New()

	_, err := repo.MustFind[models.User](conn.Where("id = ?", id), "customer", map[string]any{"userId": id})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, "customer not found", pkgerrors.As(err).Message())
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, id, details["userId"])

	_, err = repo.MustFind[models.User](conn.Table("no_such_table"), "customer", nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestBaseOnUsesTransactionHandle(t *testing.T) {
	conn := dbtest.Open(t)
	base := repo.NewBase(conn)
	assert.Equal(t, base, base.On(nil))

	sentinel := errors.New("rollback")
	err := conn.Transaction(func(tx *gorm.DB) error {
		user := models.User{Email: "tx@example.com", Role: enums.UserRoleUser}
		require.NoError(t, base.On(tx).DB(context.Background()).Create(&user).Error)
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	var count int64
	require.NoError(t, base.DB(context.Background()).Model(&models.User{}).Where("email = ?", "tx@example.com").Count(&count).Error)
	assert.Zero(t, count)
}

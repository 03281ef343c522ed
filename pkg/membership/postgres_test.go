package membership

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/hubaccess/pkg/access"
)

func newMockRegistry(t *testing.T) (*PostgresRegistry, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewPostgresRegistry(db), mock, db
}

func membershipRows(id, principalID, resourceID uuid.UUID, role access.MemberRole, createdAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "principal_id", "resource_id", "role", "created_at", "terminated_at"}).
		AddRow(id, principalID, resourceID, role, createdAt, nil)
}

func TestActiveMembership(t *testing.T) {
	reg, mock, db := newMockRegistry(t)
	defer db.Close()

	principalID := uuid.New()
	resourceID := uuid.New()
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(`SELECT (.+) FROM memberships`).
			WithArgs(principalID, resourceID).
			WillReturnRows(membershipRows(id, principalID, resourceID, access.MemberRoleMember, time.Now()))

		m, err := reg.ActiveMembership(ctx, principalID, resourceID)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, id, m.ID)
		assert.True(t, m.Active())
	})

	t.Run("absent is nil, not an error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM memberships`).
			WithArgs(principalID, resourceID).
			WillReturnError(sql.ErrNoRows)

		m, err := reg.ActiveMembership(ctx, principalID, resourceID)
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMembership(t *testing.T) {
	reg, mock, db := newMockRegistry(t)
	defer db.Close()

	principalID := uuid.New()
	resourceID := uuid.New()
	ctx := context.Background()

	t.Run("inserts a new membership", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(`INSERT INTO memberships`).
			WithArgs(sqlmock.AnyArg(), principalID, resourceID, access.MemberRoleMember).
			WillReturnRows(membershipRows(id, principalID, resourceID, access.MemberRoleMember, time.Now()))

		m, err := reg.CreateMembership(ctx, principalID, resourceID, access.MemberRoleMember)
		require.NoError(t, err)
		assert.Equal(t, id, m.ID)
	})

	t.Run("conflict returns the existing membership", func(t *testing.T) {
		existingID := uuid.New()
		mock.ExpectQuery(`INSERT INTO memberships`).
			WithArgs(sqlmock.AnyArg(), principalID, resourceID, access.MemberRoleMember).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT (.+) FROM memberships`).
			WithArgs(principalID, resourceID).
			WillReturnRows(membershipRows(existingID, principalID, resourceID, access.MemberRoleMember, time.Now()))

		m, err := reg.CreateMembership(ctx, principalID, resourceID, access.MemberRoleMember)
		require.NoError(t, err)
		assert.Equal(t, existingID, m.ID)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountActive(t *testing.T) {
	reg, mock, db := newMockRegistry(t)
	defer db.Close()

	resourceID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM memberships`).
		WithArgs(resourceID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := reg.CountActive(context.Background(), resourceID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipsForPrincipal(t *testing.T) {
	reg, mock, db := newMockRegistry(t)
	defer db.Close()

	principalID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "principal_id", "resource_id", "role", "created_at", "terminated_at"}).
		AddRow(uuid.New(), principalID, uuid.New(), access.MemberRoleMember, now, nil).
		AddRow(uuid.New(), principalID, uuid.New(), access.MemberRoleSupervisor, now.Add(-time.Hour), nil)

	mock.ExpectQuery(`SELECT (.+) FROM memberships`).
		WithArgs(principalID).
		WillReturnRows(rows)

	memberships, err := reg.MembershipsForPrincipal(context.Background(), principalID)
	require.NoError(t, err)
	assert.Len(t, memberships, 2)
	assert.Equal(t, access.MemberRoleSupervisor, memberships[1].Role)

	require.NoError(t, mock.ExpectationsWereMet())
}

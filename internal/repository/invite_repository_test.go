package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/workspace-api/internal/database/dbtest"
	"github.com/yukikurage/workspace-api/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newInvite(resourceType models.ResourceType, resourceID uint64, target, token string) *models.ResourceInvite {
	return &models.ResourceInvite{
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Target:       target,
		InviterID:    1,
		Token:        token,
		Role:         models.RoleWorkspaceMember,
	}
}

func TestInsertInviteAndDeleteOldReplacesPending(t *testing.T) {
	ledger := NewInviteLedger(dbtest.New(t))
	ctx := context.Background()

	first := newInvite(models.ResourceWorkspace, 9, "bob@example.com", "token-1")
	require.NoError(t, ledger.InsertInviteAndDeleteOld(ctx, first))

	second := newInvite(models.ResourceWorkspace, 9, "bob@example.com", "token-2")
	require.NoError(t, ledger.InsertInviteAndDeleteOld(ctx, second))

	_, err := ledger.FindInvite(ctx, InviteFilter{ID: first.ID})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	found, err := ledger.FindInvite(ctx, InviteFilter{Token: "token-2", ResourceType: models.ResourceWorkspace})
	require.NoError(t, err)
	require.Equal(t, second.ID, found.ID)

	invites, total, err := ledger.QueryAllResourceInvites(ctx, models.ResourceWorkspace, 9, InviteQuery{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, invites, 1)
}

func TestFindInviteRespectsScopeAndValidity(t *testing.T) {
	db := dbtest.New(t)
	ledger := NewInviteLedger(db)
	ctx := context.Background()

	invite := newInvite(models.ResourceProject, 3, models.UserTarget(4), "token")
	require.NoError(t, ledger.InsertInviteAndDeleteOld(ctx, invite))

	other := uint64(5)
	_, err := ledger.FindInvite(ctx, InviteFilter{ID: invite.ID, ResourceID: &other})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = ledger.FindInvite(ctx, InviteFilter{})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.Model(&models.ResourceInvite{}).Where("id = ?", invite.ID).UpdateColumn("updated_at", old).Error)

	_, err = ledger.FindInvite(ctx, InviteFilter{ID: invite.ID, ValidSince: time.Now().Add(-24 * time.Hour)})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, ledger.MarkInviteUpdated(ctx, invite.ID))
	_, err = ledger.FindInvite(ctx, InviteFilter{ID: invite.ID, ValidSince: time.Now().Add(-24 * time.Hour)})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.ResourceInvite{}).Where("id = ?", invite.ID).UpdateColumn("updated_at", old).Error)
	purged, err := ledger.DeleteExpiredInvites(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)
}

func TestDeleteInviteReportsMissing(t *testing.T) {
	ledger := NewInviteLedger(dbtest.New(t))
	ctx := context.Background()

	invite := newInvite(models.ResourceWorkspace, 1, "bob@example.com", "token")
	require.NoError(t, ledger.InsertInviteAndDeleteOld(ctx, invite))

	deleted, err := ledger.DeleteInvite(ctx, invite.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = ledger.DeleteInvite(ctx, invite.ID)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestUpdateAllInviteTargetsMergesDuplicates(t *testing.T) {
	ledger := NewInviteLedger(dbtest.New(t))
	ctx := context.Background()
	userTarget := models.UserTarget(7)

	require.NoError(t, ledger.InsertInviteAndDeleteOld(ctx, newInvite(models.ResourceWorkspace, 1, "bob@example.com", "a")))
	require.NoError(t, ledger.InsertInviteAndDeleteOld(ctx, newInvite(models.ResourceWorkspace, 2, "bob@example.com", "b")))
	require.NoError(t, ledger.InsertInviteAndDeleteOld(ctx, newInvite(models.ResourceWorkspace, 2, userTarget, "c")))

	require.NoError(t, ledger.UpdateAllInviteTargets(ctx, "Bob@Example.com", 7))

	invites, err := ledger.QueryAllUserResourceInvites(ctx, 7, InviteQuery{ResourceType: models.ResourceWorkspace})
	require.NoError(t, err)
	require.Len(t, invites, 2)
	for _, invite := range invites {
		require.Equal(t, userTarget, invite.Target)
	}

	kept, err := ledger.FindInvite(ctx, InviteFilter{Token: "c"})
	require.NoError(t, err)
	require.EqualValues(t, 2, kept.ResourceID)
}

func TestQueryAllUserResourceInvitesIncludesEmails(t *testing.T) {
	ledger := NewInviteLedger(dbtest.New(t))
	ctx := context.Background()

	require.NoError(t, ledger.InsertInviteAndDeleteOld(ctx, newInvite(models.ResourceWorkspace, 1, "bob@example.com", "a")))
	require.NoError(t, ledger.InsertInviteAndDeleteOld(ctx, newInvite(models.ResourceProject, 1, models.UserTarget(7), "b")))
	require.NoError(t, ledger.InsertInviteAndDeleteOld(ctx, newInvite(models.ResourceServer, 0, "bob@example.com", "c")))

	invites, err := ledger.QueryAllUserResourceInvites(ctx, 7, InviteQuery{Emails: []string{"BOB@example.com"}})
	require.NoError(t, err)
	require.Len(t, invites, 3)

	require.NoError(t, ledger.DeleteServerOnlyInvites(ctx, "bob@example.com"))
	require.NoError(t, ledger.DeleteAllResourceInvites(ctx, models.ResourceProject, 1))

	invites, err = ledger.QueryAllUserResourceInvites(ctx, 7, InviteQuery{Emails: []string{"bob@example.com"}})
	require.NoError(t, err)
	require.Len(t, invites, 1)
	require.Equal(t, models.ResourceWorkspace, invites[0].ResourceType)
}

func newMockLedger(t *testing.T) (InviteLedger, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newMockDB(t)
	return NewInviteLedger(db), mock
}

// newMockDB opens gorm on the postgres dialect over sqlmock.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	return db, mock
}

func TestInsertInviteAndDeleteOldRunsInOneTransaction(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "resource_invites" WHERE`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "resource_invites"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()

	invite := newInvite(models.ResourceWorkspace, 1, "bob@example.com", "token")
	require.NoError(t, ledger.InsertInviteAndDeleteOld(context.Background(), invite))
	require.EqualValues(t, 42, invite.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertInviteAndDeleteOldReportsLostRace(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "resource_invites" WHERE`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "resource_invites"`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	invite := newInvite(models.ResourceWorkspace, 1, "bob@example.com", "token")
	err := ledger.InsertInviteAndDeleteOld(context.Background(), invite)
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

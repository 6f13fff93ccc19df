package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/workspace-api/internal/database/dbtest"
	"github.com/yukikurage/workspace-api/internal/events"
	"github.com/yukikurage/workspace-api/internal/mailer"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeQueue struct {
	mu     sync.Mutex
	sent   []mailer.Message
	reject bool
}

func (q *fakeQueue) Enqueue(msg mailer.Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.reject {
		return false
	}
	q.sent = append(q.sent, msg)
	return true
}

func (q *fakeQueue) messages() []mailer.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]mailer.Message(nil), q.sent...)
}

type testEnv struct {
	db         *gorm.DB
	store      *repository.Store
	events     *events.Recorder
	emails     *fakeQueue
	workspaces *WorkspaceService
	invites    *InviteService
	projects   *ProjectService
	auth       *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithConfig(t, InviteConfig{}, AuthConfig{})
}

func newTestEnvWithConfig(t *testing.T, inviteCfg InviteConfig, authCfg AuthConfig) *testEnv {
	t.Helper()

	db := dbtest.New(t)
	store := repository.NewStore(db)
	recorder := &events.Recorder{}
	queue := &fakeQueue{}
	logger := zap.NewNop()
	perms := NewProjectPermissions()

	if inviteCfg.AppOrigin == "" {
		inviteCfg.AppOrigin = "https://app.test"
	}
	if inviteCfg.DefaultLocale == "" {
		inviteCfg.DefaultLocale = "en"
	}
	if inviteCfg.ServerName == "" {
		inviteCfg.ServerName = "Workspace API"
	}
	authCfg.AppOrigin = inviteCfg.AppOrigin
	authCfg.DefaultLocale = inviteCfg.DefaultLocale

	workspaces := NewWorkspaceService(store, perms, recorder, logger)
	invites := NewInviteService(store, NewRoleAuthorizer(store), workspaces, perms, queue, recorder, logger, inviteCfg)

	return &testEnv{
		db:         db,
		store:      store,
		events:     recorder,
		emails:     queue,
		workspaces: workspaces,
		invites:    invites,
		projects:   NewProjectService(store, perms, logger),
		auth:       NewAuthService(store, invites, queue, logger, authCfg),
	}
}

func (e *testEnv) user(t *testing.T, name, email string) *models.User {
	return e.userWithEmail(t, name, email, true)
}

func (e *testEnv) userWithEmail(t *testing.T, name, email string, verified bool) *models.User {
	t.Helper()

	user := &models.User{
		Name:         name,
		PasswordHash: "hashed",
		ServerRole:   models.RoleServerUser,
		Locale:       "en",
	}
	record := &models.UserEmail{Email: email, Verified: verified}
	require.NoError(t, e.store.Users.CreateWithPrimaryEmail(context.Background(), user, record))
	return user
}

func (e *testEnv) serverAdmin(t *testing.T, name, email string) *models.User {
	t.Helper()

	user := e.user(t, name, email)
	user.ServerRole = models.RoleServerAdmin
	require.NoError(t, e.db.Save(user).Error)
	return user
}

func (e *testEnv) workspace(t *testing.T, owner *models.User, name string) *models.Workspace {
	t.Helper()

	workspace, err := e.workspaces.CreateWorkspace(context.Background(), owner.ID, CreateWorkspaceInput{Name: name}, nil)
	require.NoError(t, err)
	return workspace
}

func (e *testEnv) domain(t *testing.T, workspace *models.Workspace, owner *models.User, domain string) *models.WorkspaceDomain {
	t.Helper()

	record := &models.WorkspaceDomain{WorkspaceID: workspace.ID, Domain: domain, CreatedByUserID: owner.ID}
	require.NoError(t, e.store.Domains.Store(context.Background(), record))
	return record
}

func (e *testEnv) setRole(t *testing.T, workspace *models.Workspace, user *models.User, role models.Role) {
	t.Helper()

	_, err := e.workspaces.UpdateWorkspaceRole(context.Background(), UpdateRoleInput{
		WorkspaceID:     workspace.ID,
		UserID:          user.ID,
		Role:            role,
		SkipDomainCheck: true,
	})
	require.NoError(t, err)
}

func (e *testEnv) role(t *testing.T, workspaceID, userID uint64) (models.Role, bool) {
	t.Helper()

	role, err := e.store.Roles.Get(context.Background(), workspaceID, userID)
	if err != nil {
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
		return "", false
	}
	return role.Role, true
}

func (e *testEnv) countInvites(t *testing.T) int64 {
	t.Helper()

	var count int64
	require.NoError(t, e.db.Model(&models.ResourceInvite{}).Count(&count).Error)
	return count
}

func repositoryFilterByID(id uint64) repository.InviteFilter {
	return repository.InviteFilter{ID: id}
}

package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "github.com/yukikurage/workspace-api/internal/errors"
	"github.com/yukikurage/workspace-api/internal/models"
)

func TestSignup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.auth.Signup(ctx, SignupInput{Name: "Ada", Email: "Ada@Example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleServerAdmin, first.ServerRole, "the first user administers the server")
	assert.Equal(t, "en", first.Locale)

	second, err := env.auth.Signup(ctx, SignupInput{Name: "Bob", Email: "bob@example.com", Password: "password123", Locale: "de"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleServerUser, second.ServerRole)
	assert.NotEqual(t, "password123", second.PasswordHash)

	emails, err := env.auth.ListEmails(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, "ada@example.com", emails[0].Email)
	assert.True(t, emails[0].Primary)
	assert.False(t, emails[0].Verified)
	require.NotNil(t, emails[0].VerificationToken)

	messages := env.emails.messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "ada@example.com", messages[0].To)
	assert.Contains(t, messages[0].Body, "https://app.test/verify-email?token="+*emails[0].VerificationToken)
	assert.True(t, strings.HasPrefix(messages[1].Body, "Hallo Bob"))

	tests := []struct {
		name    string
		input   SignupInput
		wantErr error
	}{
		{name: "taken email", input: SignupInput{Name: "Ann", Email: "ADA@example.com", Password: "password123"}, wantErr: ErrEmailTaken},
		{name: "short password", input: SignupInput{Name: "Ann", Email: "ann@example.com", Password: "short"}, wantErr: ErrPasswordTooShort},
		{name: "blank name", input: SignupInput{Name: "  ", Email: "ann@example.com", Password: "password123"}, wantErr: ErrNameRequired},
		{name: "bad email", input: SignupInput{Name: "Ann", Email: "ann", Password: "password123"}, wantErr: ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Signup(ctx, tt.input)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSignupInviteOnly(t *testing.T) {
	env := newTestEnvWithConfig(t, InviteConfig{}, AuthConfig{InviteOnly: true})
	ctx := context.Background()
	admin := env.serverAdmin(t, "Ada", "ada@acme.com")
	workspace := env.workspace(t, admin, "Acme")

	serverInvite, err := env.invites.Create(ctx, CreateInviteInput{
		ResourceType: models.ResourceServer, InviterID: admin.ID,
		Target: InviteTarget{Email: "new@example.com"},
	})
	require.NoError(t, err)
	_, err = env.invites.Create(ctx, CreateInviteInput{
		ResourceType: models.ResourceWorkspace, ResourceID: workspace.ID, InviterID: admin.ID,
		Target: InviteTarget{Email: "new@example.com"},
	})
	require.NoError(t, err)

	_, err = env.auth.Signup(ctx, SignupInput{Name: "Eve", Email: "eve@example.com", Password: "password123"})
	require.ErrorIs(t, err, ErrSignupRequiresInvite)
	assert.ErrorIs(t, err, apierrors.ErrAuthorization)

	_, err = env.auth.Signup(ctx, SignupInput{Name: "Eve", Email: "eve@example.com", Password: "password123", InviteToken: serverInvite.Invite.Token})
	require.ErrorIs(t, err, ErrSignupRequiresInvite, "the token belongs to another email")

	user, err := env.auth.Signup(ctx, SignupInput{Name: "New", Email: "new@example.com", Password: "password123", InviteToken: serverInvite.Invite.Token})
	require.NoError(t, err)

	emails, err := env.auth.ListEmails(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.True(t, emails[0].Verified)
	assert.Nil(t, emails[0].VerificationToken)

	assert.EqualValues(t, 1, env.countInvites(t), "the server invite is consumed")
	pending, err := env.invites.UserPendingWorkspaceInvites(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotNil(t, pending[0].User)
	assert.Equal(t, user.ID, pending[0].User.ID)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.auth.Signup(ctx, SignupInput{Name: "Ada", Email: "ada@example.com", Password: "password123"})
	require.NoError(t, err)

	user, err := env.auth.Login(ctx, LoginInput{Email: "ADA@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = env.auth.Login(ctx, LoginInput{Email: "ada@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAddAndVerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "Ada", "ada@acme.com")
	bob := env.user(t, "Bob", "bob@example.com")
	workspace := env.workspace(t, admin, "Acme")

	_, err := env.invites.Create(ctx, CreateInviteInput{
		ResourceType: models.ResourceWorkspace, ResourceID: workspace.ID, InviterID: admin.ID,
		Target: InviteTarget{Email: "bob@work.com"},
	})
	require.NoError(t, err)

	record, err := env.auth.AddEmail(ctx, bob.ID, " Bob@Work.com ")
	require.NoError(t, err)
	assert.Equal(t, "bob@work.com", record.Email)
	assert.False(t, record.Verified)
	require.NotNil(t, record.VerificationToken)

	_, err = env.auth.AddEmail(ctx, admin.ID, "bob@work.com")
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = env.auth.AddEmail(ctx, bob.ID, "nope")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	pending, err := env.invites.UserPendingWorkspaceInvites(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, pending, "unverified emails do not surface invites")

	verified, err := env.auth.VerifyEmail(ctx, *record.VerificationToken)
	require.NoError(t, err)
	assert.True(t, verified.Verified)

	pending, err = env.invites.UserPendingWorkspaceInvites(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotNil(t, pending[0].User)
	assert.Equal(t, bob.ID, pending[0].User.ID)

	_, err = env.auth.VerifyEmail(ctx, *record.VerificationToken)
	assert.ErrorIs(t, err, ErrVerificationTokenInvalid)
}

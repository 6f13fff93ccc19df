package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/workspace-api/internal/database/dbtest"
	"github.com/yukikurage/workspace-api/internal/events"
	"github.com/yukikurage/workspace-api/internal/mailer"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryQueue struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (q *memoryQueue) Enqueue(msg mailer.Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, msg)
	return true
}

type testEnv struct {
	db         *gorm.DB
	store      *repository.Store
	router     *gin.Engine
	auth       *services.AuthService
	workspaces *services.WorkspaceService
	invites    *services.InviteService
	projects   *services.ProjectService
}

func setupTestEnv(t *testing.T) testEnv {
	return setupTestEnvWithFeature(t, true)
}

func setupTestEnvWithFeature(t *testing.T, workspacesEnabled bool) testEnv {
	t.Helper()

	db := dbtest.New(t)
	store := repository.NewStore(db)
	logger := zap.NewNop()
	queue := &memoryQueue{}
	publisher := &events.Recorder{}
	perms := services.NewProjectPermissions()
	authorizer := services.NewRoleAuthorizer(store)

	workspaceService := services.NewWorkspaceService(store, perms, publisher, logger)
	inviteService := services.NewInviteService(store, authorizer, workspaceService, perms, queue, publisher, logger, services.InviteConfig{
		AppOrigin:     "https://app.test",
		DefaultLocale: "en",
		ServerName:    "Workspace API",
	})
	authService := services.NewAuthService(store, inviteService, queue, logger, services.AuthConfig{
		AppOrigin:     "https://app.test",
		DefaultLocale: "en",
	})
	projectService := services.NewProjectService(store, perms, logger)

	router := NewRouter(RouterConfig{
		Sessions:          cookie.NewStore([]byte("secret")),
		Logger:            logger,
		Authorizer:        authorizer,
		AuthService:       authService,
		WorkspaceService:  workspaceService,
		InviteService:     inviteService,
		ProjectService:    projectService,
		WorkspacesEnabled: workspacesEnabled,
	})

	return testEnv{
		db:         db,
		store:      store,
		router:     router,
		auth:       authService,
		workspaces: workspaceService,
		invites:    inviteService,
		projects:   projectService,
	}
}

// signupAndLogin creates a user and returns its session cookies.
func (e testEnv) signupAndLogin(t *testing.T, name, email string) (*models.User, []*http.Cookie) {
	t.Helper()

	user, err := e.auth.Signup(context.Background(), services.SignupInput{Name: name, Email: email, Password: "supersecret"})
	require.NoError(t, err)

	w := e.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": "supersecret"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "expected session cookie to be set")
	return user, cookies
}

func (e testEnv) do(t *testing.T, method, url string, payload any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

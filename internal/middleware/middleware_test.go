package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/workspace-api/internal/constants"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeWorkspaces map[uint64]models.Workspace

func (f fakeWorkspaces) GetWorkspace(_ context.Context, id uint64) (*models.Workspace, error) {
	workspace, ok := f[id]
	if !ok {
		return nil, services.ErrWorkspaceNotFound
	}
	return &workspace, nil
}

// roleTable grants each user one workspace role.
type roleTable map[uint64]models.Role

func (r roleTable) Authorize(_ context.Context, userID uint64, _ services.ResourceRef, minimum models.Role, _ *services.AccessRules) error {
	if !r[userID].AtLeast(minimum) {
		return services.ErrResourceAccessDenied
	}
	return nil
}

type recordedCall struct {
	action string
	status int
}

type callRecorder struct {
	calls []recordedCall
}

func (r *callRecorder) ObserveCall(action string, status int, _ time.Duration) {
	r.calls = append(r.calls, recordedCall{action: action, status: status})
}

func withUser(userID uint64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != 0 {
			c.Set(constants.ContextKeyUserID, userID)
		}
		c.Next()
	}
}

func TestRequireWorkspaceRole(t *testing.T) {
	workspaces := fakeWorkspaces{7: {ID: 7, Name: "Acme"}}
	roles := roleTable{1: models.RoleWorkspaceAdmin, 2: models.RoleWorkspaceMember}

	tests := []struct {
		name   string
		userID uint64
		path   string
		want   int
	}{
		{name: "admin", userID: 1, path: "/workspaces/7", want: http.StatusOK},
		{name: "member below admin", userID: 2, path: "/workspaces/7", want: http.StatusForbidden},
		{name: "outsider", userID: 3, path: "/workspaces/7", want: http.StatusForbidden},
		{name: "missing workspace", userID: 1, path: "/workspaces/8", want: http.StatusNotFound},
		{name: "bad id", userID: 1, path: "/workspaces/x", want: http.StatusBadRequest},
		{name: "anonymous", path: "/workspaces/7", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/workspaces/:id", withUser(tt.userID), RequireWorkspaceRole(workspaces, roles, models.RoleWorkspaceAdmin), func(c *gin.Context) {
				workspace, ok := GetWorkspace(c)
				require.True(t, ok)
				c.String(http.StatusOK, workspace.Name)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.want == http.StatusOK {
				assert.Equal(t, "Acme", w.Body.String())
			}
		})
	}
}

func TestRequireFeature(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		r := gin.New()
		r.GET("/x", RequireFeature(enabled), func(c *gin.Context) { c.Status(http.StatusNoContent) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		if enabled {
			assert.Equal(t, http.StatusNoContent, w.Code)
		} else {
			assert.Equal(t, http.StatusNotFound, w.Code)
		}
	}
}

func TestSessionAuth(t *testing.T) {
	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("test-secret"))))
	r.POST("/login", func(c *gin.Context) {
		require.NoError(t, StartSession(c, 42))
		c.Status(http.StatusNoContent)
	})
	r.POST("/logout", func(c *gin.Context) {
		require.NoError(t, EndSession(c))
		c.Status(http.StatusNoContent)
	})
	r.GET("/me", RequireAuth(), func(c *gin.Context) {
		id, ok := GetUserID(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	do := func(method, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		for _, ck := range cookies {
			req.AddCookie(ck)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/me", nil).Code)

	login := do(http.MethodPost, "/login", nil)
	cookies := login.Result().Cookies()
	require.NotEmpty(t, cookies)

	w := do(http.MethodGet, "/me", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":42}`, w.Body.String())

	logout := do(http.MethodPost, "/logout", cookies)
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/me", logout.Result().Cookies()).Code)
}

func TestSessionUserID(t *testing.T) {
	tests := []struct {
		value interface{}
		want  uint64
		ok    bool
	}{
		{value: uint64(7), want: 7, ok: true},
		{value: 7, want: 7, ok: true},
		{value: int64(7), want: 7, ok: true},
		{value: float64(7), want: 7, ok: true},
		{value: float64(7.5)},
		{value: -1},
		{value: uint64(0)},
		{value: "7"},
		{value: nil},
	}
	for _, tt := range tests {
		got, ok := sessionUserID(tt.value)
		assert.Equal(t, tt.ok, ok, "%#v", tt.value)
		assert.Equal(t, tt.want, got, "%#v", tt.value)
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetUserID(c)
	assert.False(t, ok)
}

func TestRequestLoggerAndCalls(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	calls := &callRecorder{}

	r := gin.New()
	r.Use(RequestLogger(zap.New(core)), ObserveCalls(calls))
	r.GET("/ok/:id", withUser(5), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("db down"))
		c.Status(http.StatusInternalServerError)
	})

	for _, path := range []string{"/ok/1", "/boom", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, []recordedCall{
		{action: "GET /ok/:id", status: http.StatusOK},
		{action: "GET /boom", status: http.StatusInternalServerError},
		{action: "GET unmatched", status: http.StatusNotFound},
	}, calls.calls)

	handled := logs.FilterMessage("request handled").All()
	require.Len(t, handled, 1)
	assert.EqualValues(t, 5, handled[0].ContextMap()["user_id"])

	failed := logs.FilterMessage("request failed").All()
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].ContextMap()["errors"], "db down")

	assert.Equal(t, 1, logs.FilterMessage("request rejected").Len())
}

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fieldops-api/internal/auth"
	"fieldops-api/internal/identity"
	"fieldops-api/internal/middleware"
	"fieldops-api/internal/models"
	"fieldops-api/internal/tasks"
	"fieldops-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	svc    *tasks.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.User{ID: "u-1", Username: "alice", DisplayName: "Alice Admin", PasswordHash: "x", Role: models.RoleAdmin}).Error)
	require.NoError(t, db.Create(&models.User{ID: "u-2", Username: "bob", PasswordHash: "x", Role: models.RoleStaff}).Error)

	dir := identity.NewUserDirectory(db)
	svc := tasks.NewService(db, dir, tasks.WithLocation(time.UTC))
	th := NewTaskHandler(svc)

	r := gin.New()
	api := r.Group("/api", middleware.JWTAuthMiddleware())
	api.GET("/users", NewUserHandler(dir).GetAllUsers)
	api.GET("/tasks", th.GetTasks)
	api.GET("/tasks/stats", th.GetTaskStats)
	api.GET("/tasks/:id", th.GetTaskByID)
	api.POST("/tasks", th.CreateTask)
	api.PUT("/tasks/:id", th.UpdateTask)
	api.PATCH("/tasks/:id/status", th.UpdateTaskStatus)
	api.DELETE("/tasks/:id", middleware.RequireRole(models.RoleAdmin), th.DeleteTask)

	return &testServer{router: r, db: db, svc: svc}
}

func (s *testServer) do(t *testing.T, method, path, userID, role string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := auth.GenerateToken(userID, userID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

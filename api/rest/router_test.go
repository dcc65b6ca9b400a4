package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/wirdapp/server/api/rest"
	"github.com/wirdapp/server/audit"
	"github.com/wirdapp/server/cache"
	"github.com/wirdapp/server/config"
	mw "github.com/wirdapp/server/middleware"
	"github.com/wirdapp/server/scheduler"
	"github.com/wirdapp/server/social"
	"github.com/wirdapp/server/streak"
	"github.com/wirdapp/server/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testAdminKey = "test-admin-key"

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	cache  cache.Cache
	streak *streak.Service
}

// newTestEnv wires the full REST surface against an in-memory DB and an
// in-process cache, mirroring the production route layout.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:  "test-secret",
		JWTTTL:     72 * time.Hour,
		BcryptCost: 4, // keep password hashing fast in tests
	}

	auditSvc := audit.New(db, logger)
	t.Cleanup(func() { auditSvc.Stop(nil) })
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	socialSvc := social.NewService(db, logger)
	streakSvc := streak.NewService(db, socialSvc, pubsub, 0, logger)

	authH := rest.NewAuthHandler(db, c, sec, auditSvc)
	friendsH := rest.NewFriendsHandler(socialSvc, auditSvc)
	streakH := rest.NewStreakHandler(streakSvc, auditSvc)
	rankH := rest.NewRankingHandler(db, c, streakSvc.Window(), logger)
	adminH := rest.NewAdminHandler(db, streakSvc, sched, logger)

	r := gin.New()
	api := r.Group("/api")

	authG := api.Group("/auth")
	authG.POST("/register", authH.Register)
	authG.POST("/login", authH.Login)
	authG.POST("/logout", mw.Auth(sec, c), authH.Logout)
	authG.POST("/refresh", mw.Auth(sec, c), authH.Refresh)

	friendsG := api.Group("/friends")
	friendsG.Use(mw.Auth(sec, c))
	friendsG.GET("", friendsH.List)
	friendsG.POST("/request", friendsH.SendRequest)
	friendsG.GET("/requests", friendsH.ListRequests)
	friendsG.POST("/requests/:id/accept", friendsH.Accept)
	friendsG.POST("/requests/:id/reject", friendsH.Reject)

	streaksG := api.Group("")
	streaksG.Use(mw.Auth(sec, c))
	streaksG.POST("/recitations", streakH.Mark)
	streaksG.GET("/streaks", streakH.List)

	rankG := api.Group("/ranking")
	rankG.GET("/streaks", rankH.TopStreaks)

	adminG := api.Group("/admin")
	adminG.Use(rest.AdminAuth(testAdminKey))
	adminG.GET("/metrics", adminH.Metrics)
	adminG.POST("/streaks/recompute", adminH.RecomputeStreaks)
	adminG.POST("/ranking/refresh", rankH.Refresh)
	adminG.GET("/scheduler", adminH.ListSchedulerTasks)

	return &testEnv{router: r, db: db, cache: c, streak: streakSvc}
}

func (e *testEnv) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// registerAndLogin creates a user through the API and returns a bearer token.
func (e *testEnv) registerAndLogin(t *testing.T, username string) string {
	t.Helper()
	w := e.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["token"].(string)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

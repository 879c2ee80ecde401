package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"fintrack/internal/handlers"
	"fintrack/internal/logger"
	"fintrack/internal/middleware"
	"fintrack/internal/models"
	"fintrack/internal/ratelimit"
	"fintrack/internal/services"
	"fintrack/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Files  *memoryStorage
	Mail   *memoryMailer
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// memoryStorage keeps stored files in a map so tests can assert on uploads
// without touching disk.
type memoryStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: make(map[string][]byte)}
}

func (m *memoryStorage) Save(path string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
	return path, nil
}

func (m *memoryStorage) Delete(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *memoryStorage) URL(path string) string {
	return "http://testserver/storage/" + path
}

func (m *memoryStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// memoryMailer captures outgoing password reset links.
type memoryMailer struct {
	mu    sync.Mutex
	links []string
}

func (m *memoryMailer) SendPasswordReset(_, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return nil
}

func (m *memoryMailer) lastLink() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.links) == 0 {
		return ""
	}
	return m.links[len(m.links)-1]
}

// recordingLimiter admits everything while remembering each bucket/key pair
// it was asked about.
type recordingLimiter struct {
	mu   sync.Mutex
	seen []string
}

func (l *recordingLimiter) Allow(bucket, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, bucket+"="+key)
	return true
}

func (l *recordingLimiter) keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.seen...)
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Tracker{},
		&models.Transaction{},
		&models.AuthToken{},
		&models.PasswordReset{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite. The rate limiter is permissive except where a test installs its own.
func setupApp(t *testing.T) *testApp {
	t.Helper()
	return setupAppWithLimiter(t, ratelimit.Unlimited{})
}

func setupAppWithLimiter(t *testing.T, limiter ratelimit.Limiter) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)
	files := newMemoryStorage()
	mail := &memoryMailer{}

	// Services
	userService := services.NewUserService(db)
	tokenService := services.NewTokenService(db, "integration-secret", time.Hour)
	resetService := services.NewPasswordResetService(db, mail, "http://testserver")
	trackerService := services.NewTrackerService(db, files)
	transactionService := services.NewTransactionService(db, trackerService, files)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, tokenService, resetService)
	userHandler := handlers.NewUserHandler(userService, files)
	trackerHandler := handlers.NewTrackerHandler(trackerService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, files)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	api := router.Group("/api")

	auth := api.Group("/auth")
	auth.Use(middleware.RateLimit(limiter, middleware.Key(ratelimit.BucketAPI, middleware.ByIP)))
	auth.POST("/register", authHandler.Register)
	auth.POST("/login",
		middleware.RateLimit(limiter,
			middleware.Key(ratelimit.BucketLoginEmailIP, middleware.ByBodyFieldAndIP("email")),
			middleware.Key(ratelimit.BucketLoginIP, middleware.ByIP),
		),
		authHandler.Login)
	auth.POST("/forgot-password",
		middleware.RateLimit(limiter,
			middleware.Key(ratelimit.BucketForgotEmail, middleware.ByBodyField("email")),
			middleware.Key(ratelimit.BucketForgotEmailIP, middleware.ByBodyFieldAndIP("email")),
		),
		authHandler.ForgotPassword)
	auth.POST("/reset-password",
		middleware.RateLimit(limiter,
			middleware.Key(ratelimit.BucketResetToken, middleware.ByBodyField("token")),
			middleware.Key(ratelimit.BucketResetIP, middleware.ByIP),
		),
		authHandler.ResetPassword)

	protected := api.Group("/")
	protected.Use(middleware.Auth(tokenService))
	protected.Use(middleware.RateLimit(limiter, middleware.Key(ratelimit.BucketAPI, middleware.ByUserOrIP)))

	protected.POST("/auth/logout", authHandler.Logout)
	protected.PUT("/user/avatar", userHandler.UpdateAvatar)

	trackers := protected.Group("/trackers")
	trackers.GET("", trackerHandler.Index)
	trackers.POST("", trackerHandler.Store)
	trackers.GET("/:tracker", trackerHandler.Show)
	trackers.PATCH("/:tracker", trackerHandler.Update)
	trackers.DELETE("/:tracker", trackerHandler.Destroy)

	trackers.POST("/:tracker/transactions", transactionHandler.Store)
	trackers.GET("/:tracker/transactions/:id", transactionHandler.Show)
	trackers.PATCH("/:tracker/transactions/:id", transactionHandler.Update)
	trackers.DELETE("/:tracker/transactions/:id", transactionHandler.Destroy)
	trackers.GET("/:tracker/paginate/transactions", transactionHandler.Paginate)
	trackers.GET("/:tracker/range/transactions", transactionHandler.Ranged)

	search := protected.Group("/search")
	search.GET("/trackers", trackerHandler.Search)
	search.GET("/transactions", transactionHandler.Search)

	return &testApp{DB: db, Router: router, Files: files, Mail: mail}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// data extracts the envelope's data object.
func data(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	result := parseJSON(t, rec)
	d, ok := result["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object in envelope, got: %s", rec.Body.String())
	}
	return d
}

// registerUser registers a new user and returns the bearer token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (token string, userID float64) {
	t.Helper()
	body := fmt.Sprintf(`{"name":"Test User","email":%q,"password":%q,"password_confirmation":%q}`, email, password, password)
	rec := app.request("POST", "/api/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	d := data(t, rec)
	user := d["user"].(map[string]interface{})
	return d["token"].(string), user["id"].(float64)
}

// loginUser logs in and returns the bearer token.
func (app *testApp) loginUser(t *testing.T, email, password string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	return data(t, rec)["token"].(string)
}

// createTracker creates a tracker and returns its ID.
func (app *testApp) createTracker(t *testing.T, token, name string, initialBalance float64) float64 {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"initial_balance":%g}`, name, initialBalance)
	rec := app.request("POST", "/api/trackers", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create tracker failed: %d %s", rec.Code, rec.Body.String())
	}
	tracker := data(t, rec)["tracker"].(map[string]interface{})
	return tracker["id"].(float64)
}

// createTransaction creates a transaction under the tracker and returns its ID.
func (app *testApp) createTransaction(t *testing.T, token string, trackerID float64, name, txType string, amount float64, date string) float64 {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"type":%q,"amount":%g,"transaction_date":%q}`, name, txType, amount, date)
	rec := app.request("POST", fmt.Sprintf("/api/trackers/%.0f/transactions", trackerID), body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction failed: %d %s", rec.Code, rec.Body.String())
	}
	tx := data(t, rec)["transaction"].(map[string]interface{})
	return tx["id"].(float64)
}

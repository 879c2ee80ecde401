package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fintrack/internal/middleware"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/services"
	"fintrack/internal/validator"
)

// --- mock services ---

type mockUserService struct {
	createUserFn     func(name, email, password string) (*models.User, error)
	getUserByEmailFn func(email string) (*models.User, error)
	getUserByIDFn    func(id uint) (*models.User, error)
	verifyPasswordFn func(user *models.User, password string) bool
	updateAvatarFn   func(userID uint, path string) (*models.User, string, error)
}

func (m *mockUserService) CreateUser(name, email, password string) (*models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(name, email, password)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByEmail(email string) (*models.User, error) {
	if m.getUserByEmailFn != nil {
		return m.getUserByEmailFn(email)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByID(id uint) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	return &models.User{}, nil
}

func (m *mockUserService) VerifyPassword(user *models.User, password string) bool {
	if m.verifyPasswordFn != nil {
		return m.verifyPasswordFn(user, password)
	}
	return true
}

func (m *mockUserService) UpdateAvatar(userID uint, path string) (*models.User, string, error) {
	if m.updateAvatarFn != nil {
		return m.updateAvatarFn(userID, path)
	}
	return &models.User{}, "", nil
}

type mockTokenService struct {
	issueFn    func(user *models.User) (*services.IssuedToken, error)
	validateFn func(token string) (*services.TokenClaims, error)
	revokeFn   func(jti string) error
}

func (m *mockTokenService) Issue(user *models.User) (*services.IssuedToken, error) {
	if m.issueFn != nil {
		return m.issueFn(user)
	}
	return &services.IssuedToken{
		Token:     "test-token",
		TokenType: "Bearer",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (m *mockTokenService) Validate(token string) (*services.TokenClaims, error) {
	if m.validateFn != nil {
		return m.validateFn(token)
	}
	return &services.TokenClaims{UserID: 1}, nil
}

func (m *mockTokenService) Revoke(jti string) error {
	if m.revokeFn != nil {
		return m.revokeFn(jti)
	}
	return nil
}

type mockResetService struct {
	sendResetLinkFn func(email string) error
	resetPasswordFn func(email, token, newPassword string) error
}

func (m *mockResetService) SendResetLink(email string) error {
	if m.sendResetLinkFn != nil {
		return m.sendResetLinkFn(email)
	}
	return nil
}

func (m *mockResetService) ResetPassword(email, token, newPassword string) error {
	if m.resetPasswordFn != nil {
		return m.resetPasswordFn(email, token, newPassword)
	}
	return nil
}

type mockTrackerService struct {
	listTrackersFn    func(userID uint) ([]models.Tracker, error)
	createTrackerFn   func(userID uint, name, description string, initialBalance decimal.Decimal, currency string) (*models.Tracker, error)
	getTrackerByIDFn  func(callerID, trackerID uint) (*models.Tracker, error)
	updateTrackerFn   func(callerID, trackerID uint, fields services.TrackerUpdateFields) (*models.Tracker, error)
	deleteTrackerFn   func(callerID, trackerID uint) error
	searchTrackersFn  func(userID uint, query string) ([]models.Tracker, error)
	getOwnedTrackerFn func(callerID, trackerID uint) (*models.Tracker, error)
}

func (m *mockTrackerService) ListTrackers(userID uint) ([]models.Tracker, error) {
	if m.listTrackersFn != nil {
		return m.listTrackersFn(userID)
	}
	return nil, nil
}

func (m *mockTrackerService) CreateTracker(userID uint, name, description string, initialBalance decimal.Decimal, currency string) (*models.Tracker, error) {
	if m.createTrackerFn != nil {
		return m.createTrackerFn(userID, name, description, initialBalance, currency)
	}
	return &models.Tracker{}, nil
}

func (m *mockTrackerService) GetTrackerByID(callerID, trackerID uint) (*models.Tracker, error) {
	if m.getTrackerByIDFn != nil {
		return m.getTrackerByIDFn(callerID, trackerID)
	}
	return &models.Tracker{}, nil
}

func (m *mockTrackerService) UpdateTracker(callerID, trackerID uint, fields services.TrackerUpdateFields) (*models.Tracker, error) {
	if m.updateTrackerFn != nil {
		return m.updateTrackerFn(callerID, trackerID, fields)
	}
	return &models.Tracker{}, nil
}

func (m *mockTrackerService) DeleteTracker(callerID, trackerID uint) error {
	if m.deleteTrackerFn != nil {
		return m.deleteTrackerFn(callerID, trackerID)
	}
	return nil
}

func (m *mockTrackerService) SearchTrackers(userID uint, query string) ([]models.Tracker, error) {
	if m.searchTrackersFn != nil {
		return m.searchTrackersFn(userID, query)
	}
	return nil, nil
}

func (m *mockTrackerService) GetOwnedTracker(callerID, trackerID uint) (*models.Tracker, error) {
	if m.getOwnedTrackerFn != nil {
		return m.getOwnedTrackerFn(callerID, trackerID)
	}
	return &models.Tracker{}, nil
}

type mockTransactionService struct {
	createTransactionFn    func(callerID, trackerID uint, input services.TransactionCreate) (*models.Transaction, error)
	getTransactionByIDFn   func(callerID, transactionID uint) (*models.Transaction, error)
	updateTransactionFn    func(callerID, transactionID uint, fields services.TransactionUpdateFields) (*models.Transaction, error)
	deleteTransactionFn    func(callerID, transactionID uint) error
	paginateTransactionsFn func(callerID, trackerID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	rangeTransactionsFn    func(callerID, trackerID uint, start, end time.Time) ([]models.Transaction, error)
	searchTransactionsFn   func(callerID uint, query string) ([]models.Transaction, error)
}

func (m *mockTransactionService) CreateTransaction(callerID, trackerID uint, input services.TransactionCreate) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(callerID, trackerID, input)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetTransactionByID(callerID, transactionID uint) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(callerID, transactionID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) UpdateTransaction(callerID, transactionID uint, fields services.TransactionUpdateFields) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(callerID, transactionID, fields)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(callerID, transactionID uint) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(callerID, transactionID)
	}
	return nil
}

func (m *mockTransactionService) PaginateTransactions(callerID, trackerID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if m.paginateTransactionsFn != nil {
		return m.paginateTransactionsFn(callerID, trackerID, page)
	}
	result := pagination.NewPageResponse([]models.Transaction{}, 1, 10, 0)
	return &result, nil
}

func (m *mockTransactionService) RangeTransactions(callerID, trackerID uint, start, end time.Time) ([]models.Transaction, error) {
	if m.rangeTransactionsFn != nil {
		return m.rangeTransactionsFn(callerID, trackerID, start, end)
	}
	return nil, nil
}

func (m *mockTransactionService) SearchTransactions(callerID uint, query string) ([]models.Transaction, error) {
	if m.searchTransactionsFn != nil {
		return m.searchTransactionsFn(callerID, query)
	}
	return nil, nil
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectUserID(uid uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// envelopeData pulls the data object out of the response envelope.
func envelopeData(t *testing.T, result map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := result["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object in envelope, got: %v", result)
	}
	return data
}

// assertFieldError checks that the envelope carries a validation message for
// the field.
func assertFieldError(t *testing.T, result map[string]interface{}, field string) {
	t.Helper()
	errs, ok := result["errors"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected errors object in envelope, got: %v", result)
	}
	if _, ok := errs[field]; !ok {
		t.Errorf("expected validation error for field %q, got: %v", field, errs)
	}
}

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"fintrack/internal/models"
)

func setupUserRouter(handler *UserHandler) *gin.Engine {
	r := gin.New()
	r.PUT("/user/avatar", injectUserID(1), handler.UpdateAvatar)
	return r
}

func TestUserHandler_UpdateAvatar(t *testing.T) {
	t.Run("stores the new avatar and removes the previous one", func(t *testing.T) {
		files := &stubStorage{}
		userSvc := &mockUserService{
			updateAvatarFn: func(userID uint, path string) (*models.User, string, error) {
				return &models.User{Base: models.Base{ID: userID}, Name: "Jordan", Avatar: &path}, "avatars/1/old.png", nil
			},
		}
		r := setupUserRouter(NewUserHandler(userSvc, files))

		body, contentType := multipartBody(t, nil, "avatar")
		req := httptest.NewRequest("PUT", "/user/avatar", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(files.saved) != 1 {
			t.Fatalf("expected 1 stored file, got %d", len(files.saved))
		}
		if len(files.deleted) != 1 || files.deleted[0] != "avatars/1/old.png" {
			t.Errorf("expected previous avatar deleted, got %v", files.deleted)
		}
		data := envelopeData(t, parseJSON(t, rec))
		user := data["user"].(map[string]interface{})
		avatar, _ := user["avatar"].(string)
		if !strings.HasPrefix(avatar, "http://localhost:8080/storage/") {
			t.Errorf("expected public avatar URL, got %v", user["avatar"])
		}
	})

	t.Run("returns 422 without a file", func(t *testing.T) {
		r := setupUserRouter(NewUserHandler(&mockUserService{}, &stubStorage{}))

		body, contentType := multipartBody(t, map[string]string{"unused": "1"}, "")
		req := httptest.NewRequest("PUT", "/user/avatar", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
		}
		assertFieldError(t, parseJSON(t, rec), "avatar")
	})

	t.Run("returns 422 on a non-image upload", func(t *testing.T) {
		files := &stubStorage{}
		r := setupUserRouter(NewUserHandler(&mockUserService{}, files))

		var bodyText strings.Builder
		boundary := "testboundary"
		bodyText.WriteString("--" + boundary + "\r\n")
		bodyText.WriteString("Content-Disposition: form-data; name=\"avatar\"; filename=\"notes.txt\"\r\n")
		bodyText.WriteString("Content-Type: text/plain\r\n\r\n")
		bodyText.WriteString("not an image\r\n")
		bodyText.WriteString("--" + boundary + "--\r\n")

		req := httptest.NewRequest("PUT", "/user/avatar", strings.NewReader(bodyText.String()))
		req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(files.saved) != 0 {
			t.Errorf("expected nothing stored, got %v", files.saved)
		}
	})
}

package services

import (
	"testing"
	"time"

	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func TestTokenService(t *testing.T) {
	t.Run("issue_and_validate", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTokenService(db, "test-secret", time.Hour)
		user := testutil.CreateTestUser(t, db)

		issued, err := svc.Issue(user)
		testutil.AssertNoError(t, err)

		if issued.TokenType != "Bearer" {
			t.Errorf("expected Bearer, got %s", issued.TokenType)
		}

		claims, err := svc.Validate(issued.Token)
		testutil.AssertNoError(t, err)

		if claims.UserID != user.ID {
			t.Errorf("expected user %d, got %d", user.ID, claims.UserID)
		}
		if claims.Email != user.Email {
			t.Errorf("expected email %s, got %s", user.Email, claims.Email)
		}
	})

	t.Run("revoked_token_fails_validation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTokenService(db, "test-secret", time.Hour)
		user := testutil.CreateTestUser(t, db)

		issued, err := svc.Issue(user)
		testutil.AssertNoError(t, err)

		claims, err := svc.Validate(issued.Token)
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, svc.Revoke(claims.ID))

		_, err = svc.Validate(issued.Token)
		testutil.AssertAppError(t, err, "UNAUTHENTICATED")
	})

	t.Run("revocation_leaves_other_sessions_valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTokenService(db, "test-secret", time.Hour)
		user := testutil.CreateTestUser(t, db)

		first, err := svc.Issue(user)
		testutil.AssertNoError(t, err)
		second, err := svc.Issue(user)
		testutil.AssertNoError(t, err)

		firstClaims, err := svc.Validate(first.Token)
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, svc.Revoke(firstClaims.ID))

		if _, err := svc.Validate(first.Token); err == nil {
			t.Error("expected revoked token to fail")
		}
		if _, err := svc.Validate(second.Token); err != nil {
			t.Errorf("expected the other session to stay valid: %v", err)
		}
	})

	t.Run("expired_token_fails_validation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTokenService(db, "test-secret", -time.Minute)
		user := testutil.CreateTestUser(t, db)

		issued, err := svc.Issue(user)
		testutil.AssertNoError(t, err)

		_, err = svc.Validate(issued.Token)
		testutil.AssertAppError(t, err, "UNAUTHENTICATED")
	})

	t.Run("garbage_token_fails_validation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTokenService(db, "test-secret", time.Hour)

		_, err := svc.Validate("not-a-jwt")
		testutil.AssertAppError(t, err, "UNAUTHENTICATED")
	})

	t.Run("wrong_secret_fails_validation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		issuer := NewTokenService(db, "secret-a", time.Hour)
		verifier := NewTokenService(db, "secret-b", time.Hour)
		user := testutil.CreateTestUser(t, db)

		issued, err := issuer.Issue(user)
		testutil.AssertNoError(t, err)

		_, err = verifier.Validate(issued.Token)
		testutil.AssertAppError(t, err, "UNAUTHENTICATED")
	})

	t.Run("validation_touches_last_used_at", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTokenService(db, "test-secret", time.Hour)
		user := testutil.CreateTestUser(t, db)

		issued, err := svc.Issue(user)
		testutil.AssertNoError(t, err)

		claims, err := svc.Validate(issued.Token)
		testutil.AssertNoError(t, err)

		var record models.AuthToken
		if err := db.Where("jti = ?", claims.ID).First(&record).Error; err != nil {
			t.Fatalf("failed to load token row: %v", err)
		}
		if record.LastUsedAt == nil {
			t.Error("expected last_used_at to be set after validation")
		}
	})
}

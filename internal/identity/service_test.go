package identity

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/zero-wait/platform/internal/shared/config"
	apperrors "github.com/zero-wait/platform/internal/shared/errors"
	"github.com/zero-wait/platform/internal/store"
)

func newTestService() *Service {
	cfg := config.AuthConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	}
	return NewService(store.NewMemory(), cfg, zerolog.Nop())
}

func validSignUp() SignUpRequest {
	return SignUpRequest{
		Email:     "asha@example.com",
		Password:  "secret123",
		UserType:  "patient",
		FirstName: "Asha",
		LastName:  "Rao",
	}
}

// TestSignUp tests account creation
func TestSignUp(t *testing.T) {
	svc := newTestService()

	result, err := svc.SignUp(context.Background(), validSignUp())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Token == "" {
		t.Error("Expected a session token")
	}
	if result.Profile == nil || result.Profile.ID.IsZero() {
		t.Fatal("Expected a profile with an id")
	}
	if result.Profile.Email != "asha@example.com" {
		t.Errorf("Expected normalized email, got %s", result.Profile.Email)
	}
}

// TestSignUpValidation tests signup input validation
func TestSignUpValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SignUpRequest)
	}{
		{"Missing email", func(r *SignUpRequest) { r.Email = "" }},
		{"Short password", func(r *SignUpRequest) { r.Password = "abc" }},
		{"Unknown role", func(r *SignUpRequest) { r.UserType = "wizard" }},
		{"Missing first name", func(r *SignUpRequest) { r.FirstName = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService()
			req := validSignUp()
			tt.mutate(&req)

			if _, err := svc.SignUp(context.Background(), req); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

// TestSignUpDuplicateEmail tests that an email registers once
func TestSignUpDuplicateEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, validSignUp()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	req := validSignUp()
	req.Email = "ASHA@example.com"
	if _, err := svc.SignUp(ctx, req); err == nil {
		t.Error("Expected conflict for duplicate email")
	}
}

// TestSignIn tests credential checks
func TestSignIn(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, validSignUp()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	t.Run("Correct credentials", func(t *testing.T) {
		result, err := svc.SignIn(ctx, SignInRequest{Email: "asha@example.com", Password: "secret123"})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if result.Token == "" {
			t.Error("Expected a session token")
		}
	})

	t.Run("Wrong password", func(t *testing.T) {
		if _, err := svc.SignIn(ctx, SignInRequest{Email: "asha@example.com", Password: "wrong"}); err == nil {
			t.Error("Expected error for wrong password")
		}
	})

	t.Run("Unknown email", func(t *testing.T) {
		if _, err := svc.SignIn(ctx, SignInRequest{Email: "nobody@example.com", Password: "secret123"}); err == nil {
			t.Error("Expected error for unknown email")
		}
	})
}

// TestSession tests session re-derivation from the token and profile store
func TestSession(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	result, err := svc.SignUp(ctx, validSignUp())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	t.Run("Valid token", func(t *testing.T) {
		session := svc.Session(ctx, result.Token)
		if session.State != StateAuthenticated {
			t.Fatalf("Expected authenticated, got %s", session.State)
		}
		if session.Profile == nil || session.Profile.ID != result.Profile.ID {
			t.Error("Expected the signed-up profile")
		}
	})

	t.Run("Empty token", func(t *testing.T) {
		session := svc.Session(ctx, "")
		if session.State != StateUnauthenticated {
			t.Errorf("Expected unauthenticated, got %s", session.State)
		}
	})

	t.Run("Garbage token", func(t *testing.T) {
		session := svc.Session(ctx, "not-a-token")
		if session.State != StateUnauthenticated {
			t.Errorf("Expected unauthenticated, got %s", session.State)
		}
	})

	t.Run("Cache cleared by signout", func(t *testing.T) {
		svc.SignOut(result.Profile.ID)
		// The token is still valid, so the session re-derives from the
		// profile store rather than the cache.
		session := svc.Session(ctx, result.Token)
		if session.State != StateAuthenticated {
			t.Errorf("Expected authenticated after cache eviction, got %s", session.State)
		}
	})
}

// flakyStore fails reads while allowing everything else through.
type flakyStore struct {
	store.Store
	failGets bool
}

func (f *flakyStore) Get(ctx context.Context, collection, id string) (store.Document, error) {
	if f.failGets {
		return nil, apperrors.Wrap(context.DeadlineExceeded, "document store unreachable")
	}
	return f.Store.Get(ctx, collection, id)
}

// TestSessionProfileHint tests that a transient store failure degrades to
// unauthenticated with the cached snapshot attached as a hint
func TestSessionProfileHint(t *testing.T) {
	backing := &flakyStore{Store: store.NewMemory()}
	cfg := config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}
	svc := NewService(backing, cfg, zerolog.Nop())
	ctx := context.Background()

	result, err := svc.SignUp(ctx, validSignUp())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	backing.failGets = true
	session := svc.Session(ctx, result.Token)

	if session.State != StateUnauthenticated {
		t.Fatalf("Expected unauthenticated on store failure, got %s", session.State)
	}
	if session.Profile != nil {
		t.Error("Expected no authenticated profile on store failure")
	}
	if session.ProfileHint == nil || session.ProfileHint.ID != result.Profile.ID {
		t.Error("Expected the cached snapshot as a hint")
	}
	if session.Error == "" {
		t.Error("Expected the fetch error to be attached")
	}
}

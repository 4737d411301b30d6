package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/zero-wait/platform/internal/shared/auth"
	"github.com/zero-wait/platform/internal/shared/config"
	"github.com/zero-wait/platform/internal/shared/errors"
	"github.com/zero-wait/platform/internal/shared/types"
	"github.com/zero-wait/platform/internal/store"
)

// Service reconciles the live token with the profile store. The in-memory
// snapshot cache is a latency hint only: every Session call re-validates
// against the token and re-fetches the profile, so the cache can never become
// a second source of truth.
type Service struct {
	store store.Store
	cfg   config.AuthConfig
	log   zerolog.Logger

	mu    sync.RWMutex
	cache map[string]*UserProfile // keyed by user id
}

// NewService creates the identity service.
func NewService(st store.Store, cfg config.AuthConfig, log zerolog.Logger) *Service {
	return &Service{
		store: st,
		cfg:   cfg,
		log:   log.With().Str("component", "identity").Logger(),
		cache: make(map[string]*UserProfile),
	}
}

// SignUp creates a profile document and returns it with a signed token.
// A duplicate email is an auth error, not a silent overwrite.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*AuthResult, error) {
	if details := validateSignUp(req); len(details) > 0 {
		return nil, errors.Validation("validation failed", details)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.store.Query(ctx, store.Query{
		Collection: store.CollectionUsers,
		Field:      "email",
		Value:      email,
		Limit:      1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to check existing account")
	}
	if len(existing) > 0 {
		return nil, errors.Conflict("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal(err)
	}

	profile := &UserProfile{
		ID:              types.NewID(),
		UserType:        req.UserType,
		Email:           email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		LicenseNumber:   req.LicenseNumber,
		EmployeeID:      req.EmployeeID,
		Specialization:  req.Specialization,
		Department:      req.Department,
		PharmacyLicense: req.PharmacyLicense,
		Hospital:        req.Hospital,
		Relationship:    req.Relationship,
		CreatedAt:       time.Now().UTC(),
	}

	doc, err := profileToDocument(profile)
	if err != nil {
		return nil, errors.Internal(err)
	}
	doc["passwordHash"] = string(hash)

	if _, err := s.store.Create(ctx, store.CollectionUsers, doc); err != nil {
		return nil, err
	}

	token, err := s.issueToken(profile)
	if err != nil {
		return nil, errors.Internal(err)
	}

	s.cacheProfile(profile)
	s.log.Info().Str("user_id", profile.ID.String()).Str("user_type", profile.UserType).Msg("account created")

	return &AuthResult{Profile: profile, Token: token}, nil
}

// SignIn verifies credentials and returns the profile with a fresh token.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*AuthResult, error) {
	if req.Email == "" || req.Password == "" {
		return nil, errors.Validation("validation failed", map[string]string{
			"email":    "email is required",
			"password": "password is required",
		})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	docs, err := s.store.Query(ctx, store.Query{
		Collection: store.CollectionUsers,
		Field:      "email",
		Value:      email,
		Limit:      1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up account")
	}
	if len(docs) == 0 {
		return nil, errors.Unauthorized("invalid email or password")
	}

	hash := docs[0].String("passwordHash")
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		return nil, errors.Unauthorized("invalid email or password")
	}

	profile, err := profileFromDocument(docs[0])
	if err != nil {
		return nil, errors.Internal(err)
	}

	token, err := s.issueToken(profile)
	if err != nil {
		return nil, errors.Internal(err)
	}

	s.cacheProfile(profile)

	return &AuthResult{Profile: profile, Token: token}, nil
}

// SignOut drops the cached snapshot. Tokens are stateless; the client
// discards its copy.
func (s *Service) SignOut(userID types.ID) {
	s.mu.Lock()
	delete(s.cache, userID.String())
	s.mu.Unlock()
}

// Session validates the live token and re-derives the session from the
// store. A missing profile for a valid token is created lazily; a fetch
// failure yields unauthenticated with the error attached, never a stale or
// partial profile.
func (s *Service) Session(ctx context.Context, token string) Session {
	if token == "" {
		return Session{State: StateUnauthenticated}
	}

	claims, err := auth.ParseToken(token, s.cfg.JWTSecret)
	if err != nil {
		s.SignOut(types.ID(claimsSubject(claims)))
		return Session{State: StateUnauthenticated, Error: "invalid session token"}
	}

	userID := claims.Subject

	doc, err := s.store.Get(ctx, store.CollectionUsers, userID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == "NOT_FOUND" {
			return s.lazilyCreateProfile(ctx, claims)
		}
		// The cache is never an acceptable substitute for a live read; the
		// snapshot rides along only as a rendering hint for the retry.
		return Session{
			State:       StateUnauthenticated,
			ProfileHint: s.CachedProfile(types.ID(userID)),
			Error:       err.Error(),
		}
	}

	profile, err := profileFromDocument(doc)
	if err != nil {
		return Session{State: StateUnauthenticated, Error: err.Error()}
	}

	s.cacheProfile(profile)

	return Session{State: StateAuthenticated, Profile: profile}
}

// CachedProfile returns the snapshot for a user if present. Callers use it
// only to pre-render while a live Session call is in flight.
func (s *Service) CachedProfile(userID types.ID) *UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[userID.String()]
}

func (s *Service) lazilyCreateProfile(ctx context.Context, claims *auth.Claims) Session {
	profile := &UserProfile{
		ID:        types.ID(claims.Subject),
		UserType:  claims.UserType,
		Email:     claims.Email,
		Hospital:  claims.Hospital,
		CreatedAt: time.Now().UTC(),
	}

	doc, err := profileToDocument(profile)
	if err != nil {
		return Session{State: StateUnauthenticated, Error: err.Error()}
	}

	if _, err := s.store.Create(ctx, store.CollectionUsers, doc); err != nil {
		return Session{State: StateUnauthenticated, Error: err.Error()}
	}

	s.log.Info().Str("user_id", claims.Subject).Msg("profile created lazily for valid session")
	s.cacheProfile(profile)

	return Session{State: StateAuthenticated, Profile: profile}
}

func (s *Service) issueToken(profile *UserProfile) (string, error) {
	now := time.Now()
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
		UserType: profile.UserType,
		Email:    profile.Email,
		Hospital: profile.Hospital,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *Service) cacheProfile(profile *UserProfile) {
	s.mu.Lock()
	s.cache[profile.ID.String()] = profile
	s.mu.Unlock()
}

func claimsSubject(claims *auth.Claims) string {
	if claims == nil {
		return ""
	}
	return claims.Subject
}

func validateSignUp(req SignUpRequest) map[string]string {
	details := make(map[string]string)
	if strings.TrimSpace(req.Email) == "" {
		details["email"] = "email is required"
	}
	if len(req.Password) < 6 {
		details["password"] = "password must be at least 6 characters"
	}
	if req.FirstName == "" {
		details["firstName"] = "first name is required"
	}
	if req.LastName == "" {
		details["lastName"] = "last name is required"
	}
	if !auth.ValidRole(req.UserType) {
		details["userType"] = "unknown user type"
	}
	return details
}

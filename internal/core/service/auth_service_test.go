package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/sweetshop/inventory-api/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubAuthRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	idSeq int
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	clone := *u
	return &clone
}

func (r *stubAuthRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	r.idSeq++
	stored := cloneUser(user)
	stored.ID = "user_" + strconv.Itoa(r.idSeq)
	r.users[stored.Username] = stored
	return cloneUser(stored), nil
}

func (r *stubAuthRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func newAuthSvc(repo *stubAuthRepo) *AuthService {
	return NewAuthService(repo, "secret", time.Hour, zerolog.Nop())
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestAuthService_Register_Success(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	user, err := svc.Register(context.Background(), "alice", "pass123")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID == "" {
		t.Error("expected a server-generated id")
	}
	if user.IsAdmin {
		t.Error("new accounts must not be admin")
	}
	if user.PasswordHash == "pass123" {
		t.Fatal("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestAuthService_Register_TrimsUsername(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	user, err := svc.Register(context.Background(), "  alice \t", "pass")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("expected trimmed username %q, got %q", "alice", user.Username)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	var ve *domain.ValidationError
	if _, err := svc.Register(context.Background(), "   ", "pass"); !errors.As(err, &ve) || ve.Field != "username" {
		t.Fatalf("expected username validation error, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "bob", ""); !errors.As(err, &ve) || ve.Field != "password" {
		t.Fatalf("expected password validation error, got %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	if _, err := svc.Register(context.Background(), "bob", "pass"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := svc.Register(context.Background(), "bob", "pass2"); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Register_ConcurrentSameUsername(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), "carol", "pw")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrUserExists):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != n-1 {
		t.Fatalf("expected exactly 1 success and %d duplicates, got %d/%d", n-1, ok, dup)
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubAuthRepo()
	svc := newAuthSvc(repo)

	if _, err := svc.Register(context.Background(), "dave", "s3cret"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, user, err := svc.Login(context.Background(), "dave", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected token, got empty")
	}
	if user == nil || user.Username != "dave" {
		t.Fatalf("unexpected user: %+v", user)
	}

	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims.Subject != "dave" {
		t.Errorf("expected subject %q, got %q", "dave", claims.Subject)
	}
	if claims.IsAdmin {
		t.Error("expected is_admin=false in claim")
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(time.Now()) {
		t.Error("expected a future expiry")
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	_, _ = svc.Register(context.Background(), "erin", "goodpass")
	if _, _, err := svc.Login(context.Background(), "erin", "badpass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UnknownUserIndistinguishable(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	_, _ = svc.Register(context.Background(), "erin", "goodpass")

	_, _, unknownErr := svc.Login(context.Background(), "ghost", "pass")
	_, _, wrongErr := svc.Login(context.Background(), "erin", "wrong")

	if !errors.Is(unknownErr, domain.ErrInvalidCredentials) || !errors.Is(wrongErr, domain.ErrInvalidCredentials) {
		t.Fatalf("both failure modes must be ErrInvalidCredentials, got %v / %v", unknownErr, wrongErr)
	}
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestAuthService_Validate_RoundTrip(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	token, err := svc.Issue(&domain.User{Username: "frank", IsAdmin: true})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claim, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claim.Subject != "frank" {
		t.Errorf("expected subject %q, got %q", "frank", claim.Subject)
	}
	if !claim.IsAdmin {
		t.Error("expected admin claim to survive the round trip")
	}
	if claim.ExpiresAt.IsZero() {
		t.Error("expected expiry in claim")
	}
}

func TestAuthService_Validate_WrongSecret(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())
	other := NewAuthService(newStubAuthRepo(), "other-secret", time.Hour, zerolog.Nop())

	token, _ := other.Issue(&domain.User{Username: "mallory"})
	if _, err := svc.Validate(token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for foreign signature, got %v", err)
	}
}

func TestAuthService_Validate_Expired(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "old",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.Validate(signed); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for expired token, got %v", err)
	}
}

func TestAuthService_Validate_Garbage(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	if _, err := svc.Validate("not-a-token"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// EnsureAdmin
// ---------------------------------------------------------------------------

func TestAuthService_EnsureAdmin_CreatesOnce(t *testing.T) {
	repo := newStubAuthRepo()
	svc := newAuthSvc(repo)

	if err := svc.EnsureAdmin(context.Background(), "root", "rootpw"); err != nil {
		t.Fatalf("first EnsureAdmin failed: %v", err)
	}
	if err := svc.EnsureAdmin(context.Background(), "root", "rootpw"); err != nil {
		t.Fatalf("second EnsureAdmin must be a no-op, got %v", err)
	}

	user, err := repo.FindByUsername(context.Background(), "root")
	if err != nil {
		t.Fatalf("admin not stored: %v", err)
	}
	if !user.IsAdmin {
		t.Error("seeded account must be admin")
	}

	token, _ := svc.Issue(user)
	claim, err := svc.Validate(token)
	if err != nil || !claim.IsAdmin {
		t.Fatalf("expected admin claim from seeded account, got %+v (%v)", claim, err)
	}
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mgastelum/freshmart-backend/internal/users"
	pkgAuth "github.com/mgastelum/freshmart-backend/pkg/auth"
	"github.com/mgastelum/freshmart-backend/pkg/config"
	"github.com/mgastelum/freshmart-backend/pkg/db/models"
	"github.com/mgastelum/freshmart-backend/pkg/enums"
	pkgerrors "github.com/mgastelum/freshmart-backend/pkg/errors"
	"github.com/mgastelum/freshmart-backend/pkg/security"
)

type stubUserRepo struct {
	byEmail map[string]*models.User
	created *users.CreateUserDTO
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: map[string]*models.User{}}
}

func (s *stubUserRepo) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	s.created = &dto
	user := dto.ToModel()
	user.ID = uuid.New()
	s.byEmail[user.Email] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, _ uuid.UUID, _ time.Time) error {
	return nil
}

type stubCaptcha struct {
	err      error
	verified []uuid.UUID
}

func (s *stubCaptcha) Verify(_ context.Context, id uuid.UUID, _ string) error {
	s.verified = append(s.verified, id)
	return s.err
}

type stubSessionManager struct {
	generated []string
	revoked   []string
	rotateErr error
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(_ context.Context, oldAccessID, _ string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	newID := "rotated-" + oldAccessID
	return newID, "refresh-" + newID, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "freshmart-test",
		ExpirationMinutes: 15,
	}
}

func testPasswordConfig() config.PasswordConfig {
	// Cheap parameters keep the test fast; production values come from env.
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newAuthService(t *testing.T, repo userRepository, captcha captchaVerifier, sessions sessionManager, captchaRequired bool) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		Captcha:        captcha,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
		CaptchaConfig:  config.CaptchaConfig{TTL: time.Minute, ChallengeLen: 6, RequiredOnReg: captchaRequired},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedUser(t *testing.T, repo *stubUserRepo, email, password string, role enums.MemberRole) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig())
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	repo.byEmail[email] = user
	return user
}

func TestRegisterCreatesCustomerAndIssuesTokens(t *testing.T) {
	repo := newStubUserRepo()
	captcha := &stubCaptcha{}
	sessions := &stubSessionManager{}
	svc := newAuthService(t, repo, captcha, sessions, true)

	captchaID := uuid.New()
	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:         "Pat@Example.com",
		Password:      "hunter2hunter2",
		FirstName:     "Pat",
		LastName:      "Doe",
		CaptchaID:     captchaID,
		CaptchaAnswer: "ABC234",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.created == nil || repo.created.Role != enums.MemberRoleCustomer {
		t.Fatalf("expected customer role, got %+v", repo.created)
	}
	if repo.created.Email != "pat@example.com" {
		t.Fatalf("expected lowercased email, got %q", repo.created.Email)
	}
	if len(captcha.verified) != 1 || captcha.verified[0] != captchaID {
		t.Fatal("expected captcha to be verified")
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if resp.User.Role != enums.MemberRoleCustomer {
		t.Fatalf("expected customer user, got %s", resp.User.Role)
	}
}

func TestRegisterRejectsFailedCaptcha(t *testing.T) {
	repo := newStubUserRepo()
	captcha := &stubCaptcha{err: pkgerrors.New(pkgerrors.CodeValidation, "captcha answer incorrect")}
	svc := newAuthService(t, repo, captcha, &stubSessionManager{}, true)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:     "pat@example.com",
		Password:  "hunter2hunter2",
		FirstName: "Pat",
		LastName:  "Doe",
		CaptchaID: uuid.New(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.created != nil {
		t.Fatal("user must not be created when captcha fails")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(t, repo, "pat@example.com", "hunter2hunter2", enums.MemberRoleCustomer)
	svc := newAuthService(t, repo, &stubCaptcha{}, &stubSessionManager{}, false)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:     "pat@example.com",
		Password:  "hunter2hunter2",
		FirstName: "Pat",
		LastName:  "Doe",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterShortPassword(t *testing.T) {
	svc := newAuthService(t, newStubUserRepo(), &stubCaptcha{}, &stubSessionManager{}, false)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:     "pat@example.com",
		Password:  "short",
		FirstName: "Pat",
		LastName:  "Doe",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginSucceedsWithValidCredentials(t *testing.T) {
	repo := newStubUserRepo()
	user := seedUser(t, repo, "pat@example.com", "hunter2hunter2", enums.MemberRoleCustomer)
	sessions := &stubSessionManager{}
	svc := newAuthService(t, repo, &stubCaptcha{}, sessions, false)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    " Pat@Example.com ",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.User.ID != user.ID {
		t.Fatal("expected matching user")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != enums.MemberRoleCustomer {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if len(sessions.generated) != 1 || claims.ID != sessions.generated[0] {
		t.Fatal("refresh session must be keyed by the token jti")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(t, repo, "pat@example.com", "hunter2hunter2", enums.MemberRoleCustomer)
	svc := newAuthService(t, repo, &stubCaptcha{}, &stubSessionManager{}, false)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "pat@example.com",
		Password: "wrong-password",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := newAuthService(t, newStubUserRepo(), &stubCaptcha{}, &stubSessionManager{}, false)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever123",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	repo := newStubUserRepo()
	user := seedUser(t, repo, "pat@example.com", "hunter2hunter2", enums.MemberRoleCustomer)
	user.IsActive = false
	svc := newAuthService(t, repo, &stubCaptcha{}, &stubSessionManager{}, false)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "pat@example.com",
		Password: "hunter2hunter2",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	repo := newStubUserRepo()
	user := seedUser(t, repo, "pat@example.com", "hunter2hunter2", enums.MemberRoleCustomer)
	sessions := &stubSessionManager{}
	svc := newAuthService(t, repo, &stubCaptcha{}, sessions, false)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "pat@example.com",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatal("rotated token must keep the user identity")
	}
	if claims.ID == sessions.generated[0] {
		t.Fatal("rotated token must carry a new jti")
	}
}

func TestRefreshInvalidToken(t *testing.T) {
	svc := newAuthService(t, newStubUserRepo(), &stubCaptcha{}, &stubSessionManager{}, false)

	_, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  "not-a-jwt",
		RefreshToken: "whatever",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(t, repo, "pat@example.com", "hunter2hunter2", enums.MemberRoleCustomer)
	sessions := &stubSessionManager{}
	svc := newAuthService(t, repo, &stubCaptcha{}, sessions, false)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "pat@example.com",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), login.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != sessions.generated[0] {
		t.Fatal("logout must revoke the session keyed by the token jti")
	}
}

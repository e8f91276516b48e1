package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hellstar-bit/Accesum-SENA-sub000/config"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/dto"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/model"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/repository"
	"github.com/hellstar-bit/Accesum-SENA-sub000/pkg/jwt"
)

func newAuthFixture(t *testing.T) (AuthService, *repository.Repository, *jwt.Manager) {
	t.Helper()
	repo := newMockRepository()

	hash, err := bcrypt.GenerateFromPassword([]byte("Secreto123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	user := &model.User{
		DocumentID:   "1002003000",
		FirstName:    "Diana",
		LastName:     "Salas",
		Email:        "diana@example.com",
		PasswordHash: string(hash),
		Role:         model.RoleInstructor,
	}
	if err := repo.User.Create(context.Background(), user); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	cfg := testConfig()
	cfg.Auth = config.AuthConfig{
		JWTSecret:              "unit-test-secret-0123456789",
		AccessTokenTTL:         15 * time.Minute,
		RefreshTokenTTLDefault: 24 * time.Hour,
	}
	jwtMgr := jwt.NewManager(&cfg.Auth)
	svc := NewAuthService(cfg, repo, jwtMgr, nil, zap.NewNop())
	return svc, repo, jwtMgr
}

func TestLoginSuccess(t *testing.T) {
	svc, _, jwtMgr := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{DocumentID: "1002003000", Password: "Secreto123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("token 对不应为空")
	}
	if resp.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("expires_in 不符: %d", resp.ExpiresIn)
	}
	if resp.User.Role != model.RoleInstructor {
		t.Errorf("用户角色不符: %s", resp.User.Role)
	}

	claims, err := jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("解析 access token 失败: %v", err)
	}
	if claims.TokenType != "access" || claims.Role != model.RoleInstructor {
		t.Errorf("claims 不符: %+v", claims)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{DocumentID: "1002003000", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("密码错误应返回统一凭证错误，err = %v", err)
	}
}

func TestLoginUnknownDocumentSameError(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	// 账号不存在与密码错误不可区分
	_, err := svc.Login(context.Background(), &dto.LoginRequest{DocumentID: "9999999999", Password: "Secreto123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("账号不存在应返回统一凭证错误，err = %v", err)
	}
}

func TestRefreshIssuesNewPair(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{DocumentID: "1002003000", Password: "Secreto123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.RefreshToken == "" {
		t.Fatal("刷新后的 token 对不应为空")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{DocumentID: "1002003000", Password: "Secreto123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := svc.Refresh(ctx, login.AccessToken); !errors.Is(err, ErrRefreshTokenType) {
		t.Fatalf("access token 不能用于刷新，err = %v", err)
	}
}

func TestGetCurrentUser(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)
	ctx := context.Background()

	user, err := repo.User.GetByDocumentID(ctx, "1002003000")
	if err != nil {
		t.Fatalf("查询用户失败: %v", err)
	}
	resp, err := svc.GetCurrentUser(ctx, user.UserID)
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}
	if resp.DocumentID != "1002003000" || resp.Email != "diana@example.com" {
		t.Errorf("用户信息不符: %+v", resp)
	}

	if _, err := svc.GetCurrentUser(ctx, "no-such"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("应返回用户不存在，err = %v", err)
	}
}

func TestLogoutWithoutRedisDegrades(t *testing.T) {
	svc, _, jwtMgr := newAuthFixture(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{DocumentID: "1002003000", Password: "Secreto123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	claims, err := jwtMgr.ParseToken(login.AccessToken)
	if err != nil {
		t.Fatalf("解析 token 失败: %v", err)
	}
	// Redis 缺席时登出不报错，降级为客户端丢弃
	if err := svc.Logout(ctx, claims); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
}

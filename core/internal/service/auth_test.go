package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	svc, err := NewAuthService(nil, "test-secret-for-unit-tests", 1)
	if err != nil {
		t.Fatalf("创建认证服务失败: %v", err)
	}
	return svc
}

func TestGenerateAndParseToken(t *testing.T) {
	svc := newTestAuthService(t)

	token, err := svc.GenerateToken(SessionClaims{
		UserID:    "user-001",
		Email:     "a@b.com",
		Role:      "admin",
		SessionID: "sess-001",
	})
	if err != nil {
		t.Fatalf("签发令牌失败: %v", err)
	}

	claims, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("解析令牌失败: %v", err)
	}
	if claims.UserID != "user-001" || claims.Email != "a@b.com" ||
		claims.Role != "admin" || claims.SessionID != "sess-001" {
		t.Fatalf("claims 不完整: %+v", claims)
	}
}

func TestParseTokenRejectsTampered(t *testing.T) {
	svc := newTestAuthService(t)

	token, err := svc.GenerateToken(SessionClaims{UserID: "user-001", SessionID: "sess-001"})
	if err != nil {
		t.Fatalf("签发令牌失败: %v", err)
	}

	if _, err := svc.ParseToken(token + "x"); err == nil {
		t.Fatal("篡改的令牌应解析失败")
	}
	if _, err := svc.ParseToken("not-a-jwt"); err == nil {
		t.Fatal("非法格式令牌应解析失败")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestAuthService(t)

	other, err := NewAuthService(nil, "another-secret-entirely", 1)
	if err != nil {
		t.Fatalf("创建认证服务失败: %v", err)
	}
	token, err := other.GenerateToken(SessionClaims{UserID: "user-001"})
	if err != nil {
		t.Fatalf("签发令牌失败: %v", err)
	}

	if _, err := svc.ParseToken(token); err == nil {
		t.Fatal("不同密钥签发的令牌应解析失败")
	}
}

func TestParseTokenRejectsNoneAlgorithm(t *testing.T) {
	svc := newTestAuthService(t)

	/* alg=none 的令牌绕过签名，必须被签名方法检查拒绝 */
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": "user-001",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("构造 none 令牌失败: %v", err)
	}

	if _, err := svc.ParseToken(token); err == nil {
		t.Fatal("alg=none 令牌应被拒绝")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	svc := newTestAuthService(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-001",
		"iat":     time.Now().Add(-2 * time.Hour).Unix(),
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	token, err := expired.SignedString([]byte(svc.GetJWTSecret()))
	if err != nil {
		t.Fatalf("构造过期令牌失败: %v", err)
	}

	if _, err := svc.ParseToken(token); err == nil {
		t.Fatal("过期令牌应被拒绝")
	}
}

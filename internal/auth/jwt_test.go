package auth

import (
	"testing"
)

func TestAdminTokenRoundtrip(t *testing.T) {
	InitJWT("test-secret")

	token, err := GenerateAdminToken()
	if err != nil {
		t.Fatalf("GenerateAdminToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Role != RoleAdmin {
		t.Errorf("role %s, want %s", claims.Role, RoleAdmin)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	InitJWT("test-secret")
	token, err := GenerateAdminToken()
	if err != nil {
		t.Fatalf("GenerateAdminToken failed: %v", err)
	}

	InitJWT("another-secret")
	if _, err := ValidateToken(token); err == nil {
		t.Error("a token signed under a different secret must not validate")
	}

	InitJWT("test-secret")
	if _, err := ValidateToken("not.a.token"); err == nil {
		t.Error("garbage input must not validate")
	}
}

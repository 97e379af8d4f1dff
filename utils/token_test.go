package utils

import (
	"testing"
)

func TestJwtRoundTripCarriesClaims(t *testing.T) {
	token, err := JwtGenerate(7, "Field Officer", "field", "Latakia")
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}

	parsed, err := JwtValidate(token)
	if err != nil {
		t.Fatalf("JwtValidate: %v", err)
	}
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok || !parsed.Valid {
		t.Fatalf("expected valid JwtCustomClaim; got %T valid=%v", parsed.Claims, parsed.Valid)
	}
	if claims.ID != 7 || claims.Name != "Field Officer" || claims.Role != "field" || claims.Region != "Latakia" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestJwtValidateRejectsGarbage(t *testing.T) {
	if _, err := JwtValidate("not-a-token"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestJwtBackOfficeTokenHasNoRegion(t *testing.T) {
	token, err := JwtGenerate(1, "HQ Admin", "admin", "")
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	parsed, err := JwtValidate(token)
	if err != nil {
		t.Fatalf("JwtValidate: %v", err)
	}
	claims := parsed.Claims.(*JwtCustomClaim)
	if claims.Region != "" {
		t.Fatalf("expected empty region claim; got %q", claims.Region)
	}
}

package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testJWTSecret = "test-secret"

func signCallerToken(t *testing.T, claims *callerClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	return signed
}

func baseClaims(now time.Time) *callerClaims {
	return &callerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		ClinicID:  uuid.New().String(),
		ActorKind: "clinic-staff",
		Roles:     []string{"admin"},
	}
}

func TestValidateCallerTokenAllowsIssuedAtLeeway(t *testing.T) {
	t.Setenv("JWT_SIGNING_SECRET", testJWTSecret)

	now := time.Now()
	claims := baseClaims(now)
	claims.IssuedAt = jwt.NewNumericDate(now.Add(3 * time.Second))

	tokenString := signCallerToken(t, claims)

	caller, err := validateCallerToken(tokenString)
	if err != nil {
		t.Fatalf("expected token to be valid within leeway, got error: %v", err)
	}
	if caller.ClinicID.String() != claims.ClinicID {
		t.Fatalf("unexpected clinic id: %+v", caller)
	}
}

func TestValidateCallerTokenRejectsIssuedAtBeyondLeeway(t *testing.T) {
	t.Setenv("JWT_SIGNING_SECRET", testJWTSecret)

	now := time.Now()
	claims := baseClaims(now)
	claims.IssuedAt = jwt.NewNumericDate(now.Add(10 * time.Second))

	tokenString := signCallerToken(t, claims)

	if _, err := validateCallerToken(tokenString); err == nil {
		t.Fatal("expected token to be rejected when issued-at exceeds leeway")
	}
}

func TestValidateCallerTokenResolvesPatientActor(t *testing.T) {
	t.Setenv("JWT_SIGNING_SECRET", testJWTSecret)

	now := time.Now()
	claims := baseClaims(now)
	claims.ActorKind = "patient"
	claims.Roles = nil
	claims.PatientID = uuid.New().String()

	tokenString := signCallerToken(t, claims)

	caller, err := validateCallerToken(tokenString)
	if err != nil {
		t.Fatalf("expected patient token to validate, got error: %v", err)
	}
	if caller.PatientID == nil || caller.PatientID.String() != claims.PatientID {
		t.Fatalf("unexpected patient id: %+v", caller)
	}
}

func TestValidateCallerTokenRejectsInvalidClinicID(t *testing.T) {
	t.Setenv("JWT_SIGNING_SECRET", testJWTSecret)

	now := time.Now()
	claims := baseClaims(now)
	claims.ClinicID = "not-a-uuid"

	tokenString := signCallerToken(t, claims)

	if _, err := validateCallerToken(tokenString); err == nil {
		t.Fatal("expected token to be rejected when clinic_id is not a uuid")
	}
}

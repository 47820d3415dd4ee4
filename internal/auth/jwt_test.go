package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidate(t *testing.T) {
	token, err := GenerateJWT("s3cret", "reporting-bot", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT() error = %v", err)
	}
	sub, err := ValidateJWT("s3cret", token)
	if err != nil {
		t.Fatalf("ValidateJWT() error = %v", err)
	}
	if sub != "reporting-bot" {
		t.Errorf("subject = %q, want reporting-bot", sub)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, _ := GenerateJWT("one", "x", time.Hour)
	if _, err := ValidateJWT("two", token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	token, _ := GenerateJWT("s", "x", -time.Minute)
	_, err := ValidateJWT("s", token)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateJWT("s", signed); err == nil {
		t.Fatal("expected none algorithm to be rejected")
	}
}

func TestEmptySecret(t *testing.T) {
	if _, err := GenerateJWT("", "x", time.Hour); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("GenerateJWT err = %v", err)
	}
	if _, err := ValidateJWT("", "abc"); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("ValidateJWT err = %v", err)
	}
}

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing"

func TestGenerateAndParseToken(t *testing.T) {
	tests := []struct {
		name string
		p    Principal
	}{
		{"admin", Principal{ID: 0, Name: "admin", Type: ClientAdmin}},
		{"company", Principal{ID: 12, Name: "Acme", Type: ClientCompany}},
		{"customer", Principal{ID: 7, Name: "dana", Type: ClientCustomer}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.p, testSecret, 15*time.Minute)
			if err != nil {
				t.Fatalf("GenerateToken() error = %v", err)
			}
			claims, err := ParseToken(token, testSecret)
			if err != nil {
				t.Fatalf("ParseToken() error = %v", err)
			}
			if got := claims.Principal(); got != tt.p {
				t.Errorf("Principal() = %+v, want %+v", got, tt.p)
			}
			if claims.ID == "" {
				t.Error("token has no jti")
			}
		})
	}
}

func TestParseToken_Rejects(t *testing.T) {
	valid, err := GenerateToken(Principal{ID: 1, Type: ClientCustomer}, testSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	sign := func(c Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		return s
	}
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"garbage", "not-a-jwt", testSecret},
		{"wrong secret", valid, "other-secret"},
		{"expired", sign(Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
			ClientType:       ClientCustomer,
		}), testSecret},
		{"non-numeric subject", sign(Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "abc", ExpiresAt: future},
			ClientType:       ClientCompany,
		}), testSecret},
		{"unknown client type", sign(Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: future},
			ClientType:       "OWNER",
		}), testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestParseClientType(t *testing.T) {
	tests := []struct {
		in      string
		want    ClientType
		wantErr bool
	}{
		{"ADMIN", ClientAdmin, false},
		{"company", ClientCompany, false},
		{" Customer ", ClientCustomer, false},
		{"owner", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClientType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClientType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnknownClientType) {
				t.Errorf("error = %v, want ErrUnknownClientType", err)
			}
			if got != tt.want {
				t.Errorf("ParseClientType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

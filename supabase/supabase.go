package supabase

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"clementus360/task-insights/config"

	"github.com/golang-jwt/jwt"
	"github.com/supabase-community/supabase-go"
)

var Client *supabase.Client

func Init() {
	apiURL := os.Getenv("SUPABASE_URL")
	apiKey := os.Getenv("SUPABASE_KEY")

	if apiURL == "" || apiKey == "" {
		config.Logger.Fatal("SUPABASE_URL or SUPABASE_KEY is missing")
	}
	if os.Getenv("SUPABASE_JWT_SECRET") == "" {
		config.Logger.Fatal("SUPABASE_JWT_SECRET is missing")
	}

	var err error
	Client, err = supabase.NewClient(apiURL, apiKey, &supabase.ClientOptions{})
	if err != nil {
		config.Logger.Fatal("Failed to create Supabase client:", err)
	}
}

// UserIDFromRequest verifies the bearer token against SUPABASE_JWT_SECRET and
// returns its subject with the raw token. Engines query with the service key
// and filter on this id.
func UserIDFromRequest(r *http.Request) (string, string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", "", fmt.Errorf("missing Authorization header")
	}

	jwtString := strings.TrimPrefix(authHeader, "Bearer ")
	if jwtString == "" || jwtString == authHeader {
		return "", "", fmt.Errorf("invalid Authorization header")
	}

	userID, err := VerifyUserToken(jwtString, os.Getenv("SUPABASE_JWT_SECRET"))
	if err != nil {
		return "", "", err
	}
	return userID, jwtString, nil
}

// VerifyUserToken checks an HMAC-signed Supabase token and returns its sub claim.
func VerifyUserToken(jwtString, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("SUPABASE_JWT_SECRET is not configured")
	}

	token, err := jwt.Parse(jwtString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid JWT: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid JWT")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid JWT claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("missing sub in token")
	}

	return sub, nil
}

// ClientForUser returns a client whose queries run with the user's token, so
// row-level security scopes every read to that user.
func ClientForUser(jwtString string) (*supabase.Client, error) {
	apiURL := os.Getenv("SUPABASE_URL")
	apiKey := os.Getenv("SUPABASE_KEY")

	return supabase.NewClient(apiURL, apiKey, &supabase.ClientOptions{
		Headers: map[string]string{
			"Authorization": "Bearer " + jwtString,
		},
	})
}

// ClientFromRequest combines UserIDFromRequest and ClientForUser.
func ClientFromRequest(r *http.Request) (*supabase.Client, string, error) {
	userID, jwtString, err := UserIDFromRequest(r)
	if err != nil {
		return nil, "", err
	}
	client, err := ClientForUser(jwtString)
	return client, userID, err
}

package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles understood by the service.
const (
	RoleCitizen  = "citizen"
	RoleOfficial = "official"
)

// Claims represents JWT claims.
type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// User represents a hardcoded user for the PoC.
type User struct {
	ID       string
	Password string
	Role     string
	Name     string
}

// Hardcoded users for the PoC.
var Users = map[string]User{
	"citizen1":  {ID: "citizen1", Password: "password", Role: RoleCitizen, Name: "John Doe"},
	"citizen2":  {ID: "citizen2", Password: "password", Role: RoleCitizen, Name: "Jane Kamara"},
	"official1": {ID: "official1", Password: "password", Role: RoleOfficial, Name: "Gov Official"},
}

// Service issues and validates tokens with a configured secret.
type Service struct {
	secret []byte
}

// NewService creates a token service.
func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// GenerateToken creates a JWT token for a user.
func (s *Service) GenerateToken(user User) (string, error) {
	claims := Claims{
		Sub:  user.ID,
		Role: user.Role,
		Name: user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates and parses a JWT token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// ExtractTokenFromHeader extracts the bearer token from the Authorization
// header, or returns "".
func ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}

// Authenticate validates credentials and returns the user.
func Authenticate(username, password string) (*User, error) {
	user, exists := Users[username]
	if !exists || user.Password != password {
		return nil, errors.New("invalid credentials")
	}
	return &user, nil
}

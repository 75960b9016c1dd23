package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in tokens and on employee records. Ranks drive approval
// authority: lower rank means wider authority.
const (
	RoleAdmin    = "ADMIN"
	RoleMD       = "MD"
	RoleHR       = "HR"
	RoleVP       = "VP"
	RoleManager  = "MANAGER"
	RoleEmployee = "EMPLOYEE"
)

var roleRanks = map[string]int{
	RoleAdmin:    1,
	RoleMD:       2,
	RoleHR:       2,
	RoleVP:       3,
	RoleManager:  4,
	RoleEmployee: 5,
}

// RoleRank returns the authority rank for a role. Unknown roles get a
// restrictive rank so they hold no approval authority.
func RoleRank(role string) int {
	if rank, ok := roleRanks[role]; ok {
		return rank
	}
	return 99
}

// IsHREquivalent reports whether the role may override policy checks and
// cancel approved leave.
func IsHREquivalent(role string) bool {
	return role == RoleHR || role == RoleAdmin
}

type Claims struct {
	EmployeeID string `json:"eid"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

type UserContext struct {
	EmployeeID string
	Role       string
}

func GenerateToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

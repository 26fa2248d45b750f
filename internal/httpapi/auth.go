package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWT authentication for the canlink HTTP API, via golang-jwt/jwt.
// Tokens are scoped to the issuing gateway: claims carry the node ID
// and validation refuses tokens minted by a different node.

// DefaultTokenTTL is the token lifetime when the server config does
// not set one.
const DefaultTokenTTL = 24 * time.Hour

// ErrWrongNode is returned when a token was issued by a different
// gateway node.
var ErrWrongNode = errors.New("token was issued by a different gateway")

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	ClientID string `json:"client_id"`
	NodeID   string `json:"node_id,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuth issues and validates tokens for one gateway node
type JWTAuth struct {
	secretKey []byte
	nodeID    string
	tokenTTL  time.Duration
}

// NewJWTAuth creates a token handler scoped to the given node. A zero
// ttl falls back to DefaultTokenTTL.
func NewJWTAuth(secretKey, nodeID string, ttl time.Duration) *JWTAuth {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTAuth{
		secretKey: []byte(secretKey),
		nodeID:    nodeID,
		tokenTTL:  ttl,
	}
}

// GenerateToken creates a new JWT token for a client of this gateway
func (j *JWTAuth) GenerateToken(clientID string, isAdmin bool) (string, time.Time, error) {
	if clientID == "" {
		return "", time.Time{}, errors.New("clientID cannot be empty")
	}

	now := time.Now()
	expiresAt := now.Add(j.tokenTTL)

	claims := JWTClaims{
		ClientID: clientID,
		NodeID:   j.nodeID,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.nodeID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the claims. Tokens
// minted for another gateway node fail with ErrWrongNode even when the
// signature checks out (shared secrets across a fleet must not grant
// cross-node access).
func (j *JWTAuth) ValidateToken(tokenString string) (*JWTClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token cannot be empty")
	}

	// Remove "Bearer " prefix if present
	if strings.HasPrefix(tokenString, "Bearer ") {
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	}

	// Parse and validate token
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	if claims.NodeID != j.nodeID {
		return nil, fmt.Errorf("%w: token node %q, this node %q", ErrWrongNode, claims.NodeID, j.nodeID)
	}

	return claims, nil
}

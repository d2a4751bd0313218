package backend

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vbonduro/washpos/internal/remote"
)

const ctxUsername = "username"

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req remote.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "username and password are required")
	}

	// Compare the hash even for an unknown user so both paths cost the same.
	hashErr := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(req.Password))
	if req.Username != s.cfg.AdminUsername || hashErr != nil {
		s.logger.Warn("login rejected", "username", req.Username)
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := s.issueToken(req.Username)
	if err != nil {
		return err
	}
	return c.JSON(remote.LoginResponse{Token: token})
}

func (s *Server) issueToken(username string) (string, error) {
	now := s.now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return fiber.NewError(fiber.StatusUnauthorized, "authorization must be 'Bearer <token>'")
	}

	token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid token claims")
	}

	c.Locals(ctxUsername, claims.Username)
	return c.Next()
}

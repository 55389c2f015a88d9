package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// accessTokenTTL is how long an issued access token stays valid.
const accessTokenTTL = time.Hour

// defaultRole is assigned to every self-registered user.
const defaultRole = "BaseMember"

// dummyHash is a pre-computed bcrypt hash used when a login email isn't found.
// Running bcrypt against it (instead of returning early) keeps response time
// constant, preventing timing-based account enumeration.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy"), bcrypt.DefaultCost)

// authClaims is the JWT payload for access tokens: subject is the user id.
type authClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// issueAccessToken signs a short-lived HS256 access token for u.
func (h *Handler) issueAccessToken(u user) (string, error) {
	now := time.Now()
	claims := authClaims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
}

// parseAccessToken verifies the signature and expiry of an access token.
func (h *Handler) parseAccessToken(tokenString string) (*authClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*authClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// tokenResponse builds the session payload shared by login and refresh.
func tokenResponse(accessToken, refreshToken string, u user) gin.H {
	return gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(accessTokenTTL.Seconds()),
		"user": gin.H{
			"id":    u.ID,
			"email": u.Email,
			"role":  u.Role,
		},
	}
}

// rotateRefreshToken stores a fresh refresh token on the user's row and
// returns it. Rotation invalidates the previous token.
func (h *Handler) rotateRefreshToken(c *gin.Context, userID string) (string, error) {
	token := uuid.New().String()
	_, err := h.db.Exec(c,
		"UPDATE users SET refresh_token = @token WHERE id = @id",
		pgx.NamedArgs{"token": token, "id": userID})
	return token, err
}

/* ─── Route handlers ─────────────────────────────────────────────────── */

// register creates a user plus a blank profile row.
// POST /api/auth/register (public, no auth required).
func (h *Handler) register(c *gin.Context) {
	var body registerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Email == "" || body.Password == "" {
		apiError(c, http.StatusBadRequest, "email and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	u, err := queryOne[user](h.db, c,
		`INSERT INTO users (email, password, role)
		 VALUES (@email, @password, @role)
		 RETURNING *`,
		pgx.NamedArgs{"email": body.Email, "password": string(hash), "role": defaultRole})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			apiError(c, http.StatusBadRequest, "user with this email already exists")
			return
		}
		apiError(c, http.StatusInternalServerError, "failed to register user")
		return
	}

	_, err = h.db.Exec(c,
		`INSERT INTO profiles (user_id, name, age, branch)
		 VALUES (@userID, @name, @age, @branch)`,
		pgx.NamedArgs{"userID": u.ID, "name": body.Name, "age": body.Age, "branch": body.Branch})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create profile")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    gin.H{"id": u.ID, "email": u.Email, "role": u.Role},
	})
}

// login verifies email/password and returns a token pair.
// POST /api/auth/login (public, no auth required).
func (h *Handler) login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Email == "" || body.Password == "" {
		apiError(c, http.StatusBadRequest, "email and password are required")
		return
	}

	u, lookupErr := queryOne[user](h.db, c,
		"SELECT * FROM users WHERE email = @email",
		pgx.NamedArgs{"email": body.Email})

	// Always run bcrypt to keep response time constant regardless of whether
	// the email was found; this prevents timing-based account enumeration.
	hashToCheck := string(dummyHash)
	if lookupErr == nil {
		hashToCheck = u.Password
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(hashToCheck), []byte(body.Password))

	if lookupErr != nil || compareErr != nil {
		apiError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	accessToken, err := h.issueAccessToken(u)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	refreshToken, err := h.rotateRefreshToken(c, u.ID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, tokenResponse(accessToken, refreshToken, u))
}

// refresh exchanges a refresh token for a new token pair. The presented
// token is rotated out; each refresh token is single-use.
// POST /api/auth/refresh (public, no auth required).
func (h *Handler) refresh(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.RefreshToken == "" {
		apiError(c, http.StatusBadRequest, "refresh token is required")
		return
	}

	u, err := queryOne[user](h.db, c,
		"SELECT * FROM users WHERE refresh_token = @token",
		pgx.NamedArgs{"token": body.RefreshToken})
	if err != nil {
		apiError(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	accessToken, err := h.issueAccessToken(u)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	refreshToken, err := h.rotateRefreshToken(c, u.ID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, tokenResponse(accessToken, refreshToken, u))
}

// createUser provisions a user with an explicit role.
// POST /api/users (bootstrap endpoint; same contract as cmd/create-user).
func (h *Handler) createUser(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Email == "" || body.Password == "" {
		apiError(c, http.StatusBadRequest, "email and password are required")
		return
	}
	if body.Role == "" {
		body.Role = defaultRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	u, err := queryOne[user](h.db, c,
		`INSERT INTO users (email, password, role)
		 VALUES (@email, @password, @role)
		 RETURNING *`,
		pgx.NamedArgs{"email": body.Email, "password": string(hash), "role": body.Role})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			apiError(c, http.StatusBadRequest, "user with this email already exists")
			return
		}
		apiError(c, http.StatusInternalServerError, "failed to create user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "user": u})
}

// authMiddleware validates the Bearer token and sets user_id and role on
// the context.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			apiError(c, http.StatusUnauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		claims, err := h.parseAccessToken(token)
		if err != nil {
			apiError(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set("role", claims.Role)
		c.Next()
	}
}

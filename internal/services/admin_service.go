package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/flexit/backend/internal/store"
)

// AdminService is the operator surface: it exposes the full audit trail
// (refunded rows and payment references included) behind JWT auth. The
// public leaderboard never needs accounts; this login exists only for
// operators.
type AdminService struct {
	store     store.EntryStore
	redis     *redis.Client
	validator *ValidationHelper
}

// AdminLoginRequest represents the admin login payload
// @Description Admin login request structure
type AdminLoginRequest struct {
	Password string `json:"password" validate:"required,min=6"` // Admin password
}

// AdminLoginResponse represents the admin login result
// @Description Admin login response structure
type AdminLoginResponse struct {
	Token string `json:"token"` // JWT token
}

func NewAdminService(entryStore store.EntryStore, redisClient *redis.Client) *AdminService {
	return &AdminService{
		store:     entryStore,
		redis:     redisClient,
		validator: NewValidationHelper(),
	}
}

// Login authenticates the operator.
// @Summary Admin login
// @Description Authenticate with the configured admin password
// @Tags admin
// @Accept json
// @Produce json
// @Param request body AdminLoginRequest true "Login request"
// @Success 200 {object} AdminLoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /admin/login [post]
func (s *AdminService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Admin login attempt from IP: %s", r.RemoteAddr)

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req AdminLoginRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	hash := viper.GetString("admin.password_hash")
	if hash == "" || !verifyPassword(req.Password, hash) {
		log.Printf("[AUTH] Admin login rejected from IP: %s", r.RemoteAddr)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	token, err := generateJWT("admin")
	if err != nil {
		log.Printf("[AUTH] JWT generation failed: %v", err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Admin login successful")
	SendJSONResponse(w, http.StatusOK, AdminLoginResponse{Token: token})
}

// Logout blacklists the presented token until its expiry.
// @Summary Admin logout
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]string
// @Router /admin/logout [post]
func (s *AdminService) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token != "" && len(token) > 7 {
		token = token[7:] // Remove "Bearer " prefix

		if s.redis != nil {
			ctx := context.Background()
			key := fmt.Sprintf("blacklist:%s", token)
			expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
			if err := s.redis.Set(ctx, key, "1", expiry).Err(); err != nil {
				log.Printf("[AUTH] Failed to blacklist token: %v", err)
			}
		}
	}

	SendJSONResponse(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// ListEntries returns all entries including refunded rows.
// @Summary List all entries
// @Description Full audit view: includes refunded entries and payment references
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{entries=[]models.LeaderboardEntry,count=int}
// @Failure 500 {object} ErrorResponse
// @Router /admin/entries [get]
func (s *AdminService) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListAll(r.Context(), 500)
	if err != nil {
		log.Printf("[ADMIN] Failed to fetch entries: %v", err)
		SendErrorResponse(w, "Failed to fetch entries", http.StatusInternalServerError, nil)
		return
	}

	SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

func generateJWT(subject string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

// verifyPassword checks a password against a salt$hash argon2id digest.
func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}

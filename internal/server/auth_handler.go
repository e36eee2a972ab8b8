package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/marketing-hub/internal/server/middleware"
	"github.com/jonathan/marketing-hub/internal/types"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	authService *AuthService
	jwtService  *JWTService
	validator   *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(authService *AuthService, jwtService *JWTService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtService:  jwtService,
		validator:   newValidator(),
	}
}

// SendOTP handles POST /api/auth/send-otp.
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req types.SendOTPRequest
	if err := decodeAndValidate(w, r, h.validator, &req); err != nil {
		writeError(w, err, "invalid request")
		return
	}

	if err := h.authService.SendOTP(r.Context(), req.Email); err != nil {
		writeError(w, err, "Failed to send verification code. Please try again.")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{
		"message": "Verification code sent to your email",
	})
}

// VerifyOTP handles POST /api/auth/verify-otp.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req types.VerifyOTPRequest
	if err := decodeAndValidate(w, r, h.validator, &req); err != nil {
		writeError(w, err, "invalid request")
		return
	}

	user, err := h.authService.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(w, err, "Authentication failed. Please try again.")
		return
	}

	token, err := h.jwtService.GenerateToken(user)
	if err != nil {
		writeError(w, err, "Failed to generate token")
		return
	}

	jsonResponse(w, http.StatusOK, types.LoginResponse{User: user, Token: token})
}

// Refresh handles POST /api/auth/refresh by re-issuing the caller's token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	tokenString, ok := middleware.BearerToken(r)
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "access token required")
		return
	}
	claims, err := h.jwtService.ValidateToken(tokenString)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	token, err := h.jwtService.Refresh(claims)
	if err != nil {
		writeError(w, err, "Token refresh failed")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"token": token})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so this only acknowledges.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if p, ok := middleware.GetPrincipal(r); ok {
		log.Printf("[auth] user logged out: %s", p.GetEmail())
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Profile handles GET /api/auth/profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}
	user, err := h.authService.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to retrieve user profile")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/auth/profile.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req types.UpdateProfileRequest
	if err := decodeAndValidate(w, r, h.validator, &req); err != nil {
		writeError(w, err, "invalid request")
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		writeError(w, err, "Failed to update user profile")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// ListUsers handles GET /api/auth/users. Routing restricts it to admins.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.authService.ListUsers(r.Context())
	if err != nil {
		writeError(w, err, "Failed to retrieve users")
		return
	}
	jsonResponse(w, http.StatusOK, users)
}

// VerifyToken handles GET /api/auth/verify-token, echoing the token's identity.
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r)
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"valid": true,
		"user": map[string]any{
			"id":    p.GetUserID(),
			"email": p.GetEmail(),
			"role":  p.GetRole(),
		},
	})
}

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// decodeAndValidate decodes a JSON body into dst and runs struct validation.
// Failures are returned as *ErrValidation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON"}
	}
	if err := v.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError converts the first validator failure to an ErrValidation.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return &ErrValidation{Field: ve[0].Field(), Message: ve[0].Tag()}
	}
	return &ErrValidation{Field: "request", Message: "invalid request"}
}

package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/mailer"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// AuthHandler handles account and authentication endpoints.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
	Mailer    mailer.Sender
}

type sendCodeRequest struct {
	Email string `json:"email"`
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token  string        `json:"token"`
	Member *model.Member `json:"member"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// SendCode handles POST /api/auth/send-code.
func (h *AuthHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !strings.Contains(req.Email, "@") {
		jsonError(w, http.StatusBadRequest, "valid email required")
		return
	}

	code, err := store.SaveVerificationCode(r.Context(), h.DB, req.Email)
	if err != nil {
		storeError(w, err, "failed to create verification code")
		return
	}

	body := fmt.Sprintf("Your verification code is %s. Enter it within %d minutes.", code, int(store.CodeTTL.Minutes()))
	if err := h.Mailer.Send(req.Email, "Lost and found signup verification", body); err != nil {
		slog.Error("sending verification mail", "email", req.Email, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to send verification code")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "verification code sent"})
}

// VerifyCode handles POST /api/auth/verify-code.
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Code == "" {
		jsonError(w, http.StatusBadRequest, "email and code required")
		return
	}

	ok, err := store.ConsumeVerificationCode(r.Context(), h.DB, req.Email, req.Code)
	if err != nil {
		storeError(w, err, "failed to verify code")
		return
	}
	if !ok {
		jsonError(w, http.StatusBadRequest, "wrong or expired verification code")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "email verified"})
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "name, email and password required")
		return
	}

	existing, err := store.GetMemberByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		storeError(w, err, "failed to check email")
		return
	}
	if existing != nil && existing.DeletedAt == nil {
		jsonError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	member, err := store.CreateMember(r.Context(), h.DB, req.Name, req.Email, string(hash), req.PhoneNumber, model.RoleUser)
	if err != nil {
		storeError(w, err, "failed to create member")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, member.ID, member.Email, member.Role)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("member registered", "member", member.Email)
	jsonResponse(w, http.StatusCreated, loginResponse{Token: token, Member: member})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "email and password required")
		return
	}

	member, err := store.GetMemberByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if member == nil || member.DeletedAt != nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(req.Password)); err != nil {
		slog.Warn("login failed", "email", req.Email, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, member.ID, member.Email, member.Role)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("member logged in", "member", member.Email, "role", member.Role)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, Member: member})
}

// Logout handles POST /api/auth/logout by revoking the token's JTI.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		storeError(w, err, "failed to revoke token")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}

	member, err := store.GetMember(r.Context(), h.DB, claims.MemberID)
	if err != nil || member == nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := store.UpdateMemberPassword(r.Context(), h.DB, claims.MemberID, string(hash)); err != nil {
		storeError(w, err, "failed to update password")
		return
	}

	slog.Info("member changed own password", "member", claims.Email)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

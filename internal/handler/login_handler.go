package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"cloudvault/internal/auth"
	"cloudvault/internal/domain"
	"cloudvault/internal/service"
)

type LoginHandler struct {
	loginService *service.LoginService
	tokenHeader  string
}

func NewLoginHandler(loginService *service.LoginService, tokenHeader string) *LoginHandler {
	return &LoginHandler{
		loginService: loginService,
		tokenHeader:  tokenHeader,
	}
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	AuthToken string `json:"auth-token"`
}

func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg, ok := validateLoginRequest(&req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	token, err := h.loginService.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		// Какая именно проверка не прошла, наружу не сообщаем
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrBadCredentials) {
			log.Printf("login rejected for %q: %v", req.Login, err)
			writeError(w, http.StatusBadRequest, "bad credentials")
			return
		}
		log.Printf("login failed for %q: %v", req.Login, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AuthToken: token})
}

func (h *LoginHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tokenValue, err := auth.TokenFromRequest(r, h.tokenHeader)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.loginService.Logout(r.Context(), principal.Name, tokenValue); err != nil {
		log.Printf("logout failed for %q: %v", principal.Name, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func validateLoginRequest(req *loginRequest) (string, bool) {
	login := strings.TrimSpace(req.Login)
	if len(login) < 3 || len(login) > 50 {
		return "login must be between 3 and 50 characters", false
	}
	if strings.TrimSpace(req.Password) == "" || len(req.Password) < 3 || len(req.Password) > 127 {
		return "password must be between 3 and 127 characters", false
	}
	return "", true
}

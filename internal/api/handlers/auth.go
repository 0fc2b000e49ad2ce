package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/calum/gatehouse/internal/api/dto"
	"github.com/calum/gatehouse/internal/auth"
	"github.com/calum/gatehouse/internal/database/models"
	"github.com/calum/gatehouse/internal/federation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const stateCookieName = "oauth_state"

// Activator marks an account activated; the emailed link lands here.
type Activator interface {
	Activate(ctx context.Context, id uuid.UUID) error
}

type AuthHandler struct {
	router    *auth.Router
	providers *federation.Registry
	activator Activator
}

func NewAuthHandler(router *auth.Router, providers *federation.Registry, activator Activator) *AuthHandler {
	return &AuthHandler{
		router:    router,
		providers: providers,
		activator: activator,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	session, err := h.router.Route(r.Context(), auth.ProviderLocal, auth.IntentRegister, auth.Request{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Company:  req.Company,
	})
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	setTokenCookie(w, session.Token)
	writeJSON(w, http.StatusCreated, authResponse(session))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	session, err := h.router.Route(r.Context(), auth.ProviderLocal, auth.IntentLogin, auth.Request{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	setTokenCookie(w, session.Token)
	writeJSON(w, http.StatusOK, authResponse(session))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

// OAuthRedirect hands the client the provider's authorization URL and
// pins the anti-CSRF state in a short-lived cookie.
func (h *AuthHandler) OAuthRedirect(w http.ResponseWriter, r *http.Request) {
	client, ok := h.federationClient(w, r)
	if !ok {
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	writeJSON(w, http.StatusOK, dto.OAuthRedirectResponse{URL: client.AuthCodeURL(state)})
}

// OAuthCallback exchanges the authorization code for an identity and
// routes it through the login-or-register flow.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	client, ok := h.federationClient(w, r)
	if !ok {
		return
	}

	var req dto.OAuthCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != req.State {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid state"})
		return
	}

	identity, err := client.Exchange(r.Context(), req.Code)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Authentication failed"})
		return
	}

	session, err := h.router.Route(r.Context(), identity.Provider, auth.IntentLogin, auth.Request{
		Identity: identity,
	})
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	setTokenCookie(w, session.Token)
	writeJSON(w, http.StatusOK, authResponse(session))
}

// Activate is the target of the emailed activation link.
func (h *AuthHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid activation link"})
		return
	}

	if err := h.activator.Activate(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Unknown account"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Activation failed"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Account activated"})
}

func (h *AuthHandler) federationClient(w http.ResponseWriter, r *http.Request) (federation.Client, bool) {
	provider, err := auth.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil || !provider.Federated() {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Unknown provider"})
		return nil, false
	}

	client, err := h.providers.Get(provider)
	if err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Provider not configured"})
		return nil, false
	}
	return client, true
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUserExists):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "User already exists"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid user name or password"})
	case errors.Is(err, auth.ErrNotActivated):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "User is not activated"})
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Authentication failed"})
	}
}

func setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400, // 24 hours
	})
}

func authResponse(session *auth.Session) dto.AuthResponse {
	return dto.AuthResponse{
		Token: session.Token,
		User:  userDTO(session.User),
	}
}

func userDTO(user *models.User) dto.UserDTO {
	out := dto.UserDTO{
		ID:             user.ID.String(),
		Email:          user.Email,
		Name:           user.Name,
		Provider:       user.Provider,
		Activated:      user.Activated,
		OrganizationID: user.OrganizationID.String(),
	}
	if user.Organization != nil {
		out.OrgName = user.Organization.Name
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

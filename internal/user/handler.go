package user

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"devlink/internal/common"
)

// Handler wires the HTTP surface to the user service: registration, login,
// profile and the connections sidebar.
type Handler struct {
	userService UserService
}

func NewHandler(userService UserService) *Handler {
	return &Handler{userService: userService}
}

func (h *Handler) Routes(router *mux.Router) {
	router.HandleFunc("/api/auth/register", h.register).Methods("POST")
	router.HandleFunc("/api/auth/login", h.login).Methods("POST")

	authed := router.PathPrefix("/api").Subrouter()
	authed.Use(common.AuthMiddleware)
	authed.HandleFunc("/profile", h.getProfile).Methods("GET")
	authed.HandleFunc("/profile", h.updateProfile).Methods("PUT")
	authed.HandleFunc("/connections", h.listConnections).Methods("GET")
	authed.HandleFunc("/connections/{userID}", h.sendRequest).Methods("POST")
	authed.HandleFunc("/connections/{userID}/accept", h.acceptRequest).Methods("POST")
}

type credentialsRequest struct {
	Handle   string `json:"handle"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type authResponse struct {
	Token  string `json:"token"`
	UserID uint64 `json:"user_id"`
	Handle string `json:"handle"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.userService.RegisterUser(r.Context(), req.Handle, req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeUserJSON(w, http.StatusCreated, authResponse{Token: token, UserID: user.UserID, Handle: user.Handle})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.userService.LoginUser(r.Context(), req.Handle, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid handle or password")
		return
	}

	writeUserJSON(w, http.StatusOK, authResponse{Token: token, UserID: user.UserID, Handle: user.Handle})
}

type profileResponse struct {
	UserID      uint64 `json:"user_id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Email       string `json:"email"`
	Status      string `json:"status"`
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}

	writeUserJSON(w, http.StatusOK, profileResponse{
		UserID:      user.UserID,
		Handle:      user.Handle,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Email:       user.Email,
		Status:      user.Status,
	})
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Email       string `json:"email"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.userService.UpdateProfile(r.Context(), userID, req.DisplayName, req.AvatarURL, req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listConnections(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	connections, err := h.userService.ListConnections(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list connections")
		return
	}

	writeUserJSON(w, http.StatusOK, map[string]any{"connections": connections})
}

func (h *Handler) sendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	targetID, err := strconv.ParseUint(mux.Vars(r)["userID"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	conn, err := h.userService.SendConnectionRequest(r.Context(), userID, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeUserJSON(w, http.StatusCreated, conn)
}

func (h *Handler) acceptRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	requesterID, err := strconv.ParseUint(mux.Vars(r)["userID"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.userService.AcceptConnectionRequest(r.Context(), userID, requesterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "request not found")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeUserJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("user handler: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeUserJSON(w, status, map[string]string{"error": message})
}

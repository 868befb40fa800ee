package api

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/bloodbank/internal/imaging"
	"github.com/erazemk/bloodbank/internal/model"
	"github.com/erazemk/bloodbank/internal/store"
)

// UsersHandler handles profile and user management endpoints.
type UsersHandler struct {
	DB *sql.DB
}

type profileResponse struct {
	*model.User
	History []model.DonationHistory `json:"donationHistory"`
}

// Me handles GET /api/users/me.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	history, err := store.ListHistory(r.Context(), h.DB, user.ID)
	if err != nil {
		slog.Error("failed to list donation history", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if history == nil {
		history = []model.DonationHistory{}
	}
	jsonResponse(w, http.StatusOK, profileResponse{User: user, History: history})
}

// UploadAvatar handles PUT /api/users/me/avatar. The body is the raw image.
func (h *UsersHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	defer r.Body.Close()

	avatar, err := imaging.ProcessAvatar(r.Body)
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetAvatar(r.Context(), h.DB, claims.UserID, avatar.Data, avatar.MIME); err != nil {
		slog.Error("failed to store avatar", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	slog.Info("avatar updated", "user", claims.Email, "bytes", len(avatar.Data))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "avatar updated"})
}

// GetAvatar handles GET /api/users/{id}/avatar.
func (h *UsersHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	data, mime, err := store.GetAvatar(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get avatar", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get avatar")
		return
	}
	if len(data) == 0 {
		jsonError(w, http.StatusNotFound, "avatar not found")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	// Prevent self-deletion.
	claims := GetClaims(r.Context())
	if claims != nil && claims.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	if target == nil || target.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		slog.Error("failed to delete user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	slog.Info("user deleted", "user", claims.Email, "deleted_user", fmt.Sprintf("%s (id:%d)", target.Email, id))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

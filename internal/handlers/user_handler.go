package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"gym-backend/internal/apperror"
	"gym-backend/internal/models"
	"gym-backend/internal/services"
	"gym-backend/internal/storage"
	"gym-backend/pkg/utils"
)

const maxAvatarBytes = 2 << 20 // 2 MiB

type UserHandler struct {
	Service *services.UserService
	Storage *storage.Client
}

func NewUserHandler(service *services.UserService, store *storage.Client) *UserHandler {
	return &UserHandler{Service: service, Storage: store}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperror.Validation("invalid request body"))
		return
	}

	user, err := h.Service.Create(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	user, err := h.Service.Get(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.List(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	utils.JSON(w, http.StatusOK, users)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperror.Validation("invalid request body"))
		return
	}

	user, err := h.Service.Update(r.Context(), id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

// UploadAvatar stores the user's avatar in object storage and records its key.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if h.Storage == nil {
		utils.Error(w, apperror.Validation("avatar storage is not configured"))
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}
	if _, err := h.Service.Get(r.Context(), id); err != nil {
		utils.Error(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		utils.Error(w, apperror.Validation("avatar upload too large"))
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		utils.Error(w, apperror.Validation("avatar file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "image/jpeg" && contentType != "image/png" && contentType != "image/webp" {
		utils.Error(w, apperror.Validation("avatar must be a jpeg, png or webp image"))
		return
	}

	key, err := h.Storage.PutAvatar(r.Context(), id, contentType, file)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if err := h.Service.Repo.SetAvatarKey(r.Context(), id, key); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"avatar_key": key})
}

// Avatar redirects to a short-lived presigned download URL.
func (h *UserHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	if h.Storage == nil {
		utils.Error(w, apperror.NotFound("avatar storage is not configured"))
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	user, err := h.Service.Get(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if user.AvatarKey == "" {
		utils.Error(w, apperror.NotFound("user %d has no avatar", id))
		return
	}

	url, err := h.Storage.PresignGet(r.Context(), user.AvatarKey, 15*time.Minute)
	if err != nil {
		utils.Error(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

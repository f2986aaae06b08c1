package handlers

import (
	"encoding/json"
	"net/http"

	"gym-backend/internal/apperror"
	"gym-backend/internal/middleware"
	"gym-backend/internal/models"
	"gym-backend/internal/services"
	"gym-backend/pkg/utils"
)

type TOTPHandler struct {
	Service     *services.TOTPService
	UserService *services.UserService
}

func NewTOTPHandler(service *services.TOTPService, userService *services.UserService) *TOTPHandler {
	return &TOTPHandler{Service: service, UserService: userService}
}

// Setup starts two-factor enrollment for the calling admin.
func (h *TOTPHandler) Setup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, apperror.Unauthorized("authentication required"))
		return
	}
	user, err := h.UserService.Get(r.Context(), userID)
	if err != nil {
		utils.Error(w, err)
		return
	}

	resp, err := h.Service.GenerateSetup(r.Context(), user)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// Verify confirms the first authenticator code and enables enforcement.
func (h *TOTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req models.TOTPVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperror.Validation("invalid request body"))
		return
	}

	if err := h.Service.VerifyAndEnable(r.Context(), userID, req.Code); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "two-factor authentication enabled"})
}

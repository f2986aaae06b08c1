package handlers

import (
	"encoding/json"
	"net/http"

	"gym-backend/internal/apperror"
	"gym-backend/internal/models"
	"gym-backend/internal/services"
	"gym-backend/pkg/utils"
)

type MembershipHandler struct {
	Service *services.MembershipService
}

func NewMembershipHandler(service *services.MembershipService) *MembershipHandler {
	return &MembershipHandler{Service: service}
}

func (h *MembershipHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperror.Validation("invalid request body"))
		return
	}

	membership, err := h.Service.Assign(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, membership)
}

func (h *MembershipHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		utils.Error(w, err)
		return
	}

	memberships, err := h.Service.ListByUser(r.Context(), userID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if memberships == nil {
		memberships = []*models.Membership{}
	}
	utils.JSON(w, http.StatusOK, memberships)
}

func (h *MembershipHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	if err := h.Service.Cancel(r.Context(), id); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "membership cancelled"})
}

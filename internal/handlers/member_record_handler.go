package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"gym-backend/internal/apperror"
	"gym-backend/internal/middleware"
	"gym-backend/internal/models"
	"gym-backend/internal/services"
	"gym-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type MemberRecordHandler struct {
	Service  *services.MemberRecordService
	TOTP     *services.TOTPService
	Receipts *services.ReceiptService
}

func NewMemberRecordHandler(service *services.MemberRecordService, totp *services.TOTPService, receipts *services.ReceiptService) *MemberRecordHandler {
	return &MemberRecordHandler{Service: service, TOTP: totp, Receipts: receipts}
}

// List serves the dashboard table. ?sync=true forces a reconciliation pass
// before reading; otherwise a pass runs only when the ledger is stale.
func (h *MemberRecordHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.Service.List(r.Context(), q.Get("search"), q.Get("filter"), q.Get("sync") == "true")
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

func (h *MemberRecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMemberRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperror.Validation("invalid request body"))
		return
	}

	rec, err := h.Service.Create(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, rec)
}

func (h *MemberRecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	var req models.UpdateMemberRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperror.Validation("invalid request body"))
		return
	}

	rec, err := h.Service.Update(r.Context(), id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, rec)
}

func (h *MemberRecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "member record deleted"})
}

// BulkAction handles the ledger-wide destructive actions. Callers enrolled in
// two-factor must present a valid code in X-TOTP-Code.
func (h *MemberRecordHandler) BulkAction(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	if action == "" {
		utils.Error(w, apperror.Validation("action parameter is required"))
		return
	}

	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, apperror.Unauthorized("authentication required"))
		return
	}
	if err := h.TOTP.Verify(r.Context(), userID, r.Header.Get("X-TOTP-Code")); err != nil {
		utils.Error(w, err)
		return
	}

	if err := h.Service.Bulk(r.Context(), action); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("action %s completed", action)})
}

func (h *MemberRecordHandler) AddInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	var req models.AddInstallmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperror.Validation("invalid request body"))
		return
	}

	rec, err := h.Service.AddInstallment(r.Context(), id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, rec)
}

func (h *MemberRecordHandler) DeleteInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}
	paymentID := r.URL.Query().Get("paymentId")
	if paymentID == "" {
		utils.Error(w, apperror.Validation("paymentId parameter is required"))
		return
	}

	rec, err := h.Service.DeleteInstallment(r.Context(), id, paymentID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, rec)
}

func (h *MemberRecordHandler) ClearPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	rec, err := h.Service.ClearPayments(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, rec)
}

// Receipt streams a PDF receipt for one installment.
func (h *MemberRecordHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}
	paymentID := mux.Vars(r)["paymentId"]

	rec, err := h.Service.Get(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	pdf, err := h.Receipts.InstallmentReceipt(rec, paymentID)
	if err != nil {
		utils.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt-%d-%s.pdf"`, id, paymentID))
	w.Write(pdf)
}

func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		return 0, apperror.Validation("invalid %s", name)
	}
	return id, nil
}

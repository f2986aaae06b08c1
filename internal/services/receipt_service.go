package services

import (
	"bytes"
	"fmt"

	"gym-backend/internal/apperror"
	"gym-backend/internal/models"
	"gym-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// ReceiptService renders installment receipts as PDF.
type ReceiptService struct {
	GymName string
}

func NewReceiptService(gymName string) *ReceiptService {
	if gymName == "" {
		gymName = "Gym Ledger"
	}
	return &ReceiptService{GymName: gymName}
}

// InstallmentReceipt renders a receipt for one installment of a record.
func (s *ReceiptService) InstallmentReceipt(rec *models.MemberRecord, installmentID string) ([]byte, error) {
	var inst *models.PaymentInstallment
	for i := range rec.PaymentInstallments {
		if rec.PaymentInstallments[i].ID == installmentID {
			inst = &rec.PaymentInstallments[i]
			break
		}
	}
	if inst == nil {
		return nil, apperror.NotFound("payment installment %s not found", installmentID)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, s.GymName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, "Payment Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 10)
	line := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 8, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 8, value, "", 1, "L", false, 0, "")
	}

	line("Receipt No", inst.ID)
	line("Date", inst.PaidAt.In(timeutil.IST).Format(timeutil.DisplayLayout))
	line("Member", rec.Name)
	if rec.Email != nil {
		line("Email", *rec.Email)
	}
	if rec.Phone != nil {
		line("Phone", *rec.Phone)
	}
	if rec.PlanName != "" {
		line("Plan", rec.PlanName)
	}
	pdf.Ln(4)

	line("Amount Paid", fmt.Sprintf("Rs. %.2f", inst.Amount))
	line("Payment Mode", inst.PaymentMode)
	if inst.Notes != "" {
		line("Notes", inst.Notes)
	}
	pdf.Ln(4)

	line("Total Plan Amount", fmt.Sprintf("Rs. %.2f", rec.PlanTotalAmount))
	line("Total Paid", fmt.Sprintf("Rs. %.2f", rec.PaidAmount))
	line("Balance", fmt.Sprintf("Rs. %.2f", models.Remaining(rec.PlanTotalAmount, rec.PaidAmount)))

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "This is a computer generated receipt.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

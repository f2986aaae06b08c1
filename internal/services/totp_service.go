package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"

	"gym-backend/internal/apperror"
	"gym-backend/internal/models"
	"gym-backend/internal/repositories"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpIssuer = "GymLedger"

// TOTPService manages admin two-factor enrollment. An enrolled admin must
// present a valid code for bulk destructive ledger actions.
type TOTPService struct {
	userRepo *repositories.UserRepository
}

func NewTOTPService(userRepo *repositories.UserRepository) *TOTPService {
	return &TOTPService{userRepo: userRepo}
}

// GenerateSetup creates a fresh secret for the user and returns it with a QR
// code. The secret is inactive until verified.
func (s *TOTPService) GenerateSetup(ctx context.Context, user *models.User) (*models.TOTPSetupResponse, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return nil, err
	}

	qrImage, err := key.Image(200, 200)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qrImage); err != nil {
		return nil, err
	}

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Issuer:      totpIssuer,
		AccountName: user.Email,
	}, nil
}

// VerifyAndEnable confirms the first code from the authenticator app and
// turns enforcement on.
func (s *TOTPService) VerifyAndEnable(ctx context.Context, userID int, code string) error {
	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == "" {
		return apperror.Validation("two-factor setup not initiated")
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return apperror.Unauthorized("invalid verification code")
	}
	return s.userRepo.EnableTOTP(ctx, userID)
}

// Verify checks a code for an enrolled user. Users who never enrolled pass:
// enforcement only applies after enrollment.
func (s *TOTPService) Verify(ctx context.Context, userID int, code string) error {
	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled || user.TOTPSecret == "" {
		return nil
	}
	if code == "" {
		return apperror.Unauthorized("two-factor code required")
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return apperror.Unauthorized("invalid verification code")
	}
	return nil
}

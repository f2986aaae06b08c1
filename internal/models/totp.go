package models

// TOTPSetupResponse is returned when an admin begins TOTP enrollment
type TOTPSetupResponse struct {
	Secret      string `json:"secret"`
	QRCode      string `json:"qr_code"`
	Issuer      string `json:"issuer"`
	AccountName string `json:"account_name"`
}

// TOTPVerifyRequest carries the 6-digit code for enable/verify calls
type TOTPVerifyRequest struct {
	Code string `json:"code"`
}

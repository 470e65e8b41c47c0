package dto

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateOTPRequest struct {
	Username string `json:"username"`
}

type RedeemOTPRequest struct {
	// Username is accepted for compatibility with existing clients but the
	// code alone identifies the user.
	Username string `json:"username,omitempty"`
	OTP      string `json:"otp"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

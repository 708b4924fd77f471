package api

import "time"

type RegisterRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type uploadResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"documentId"`
}

// DocumentSummary is one row of the inbox.
type DocumentSummary struct {
	ID               string    `json:"id"`
	OriginalFileName string    `json:"originalFileName"`
	SenderID         string    `json:"senderId"`
	Size             int64     `json:"size"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Download is an envelope addressed to the caller.
type Download struct {
	EnvelopeB64      string `json:"envelopeB64"`
	OriginalFileName string `json:"originalFileName"`
	SenderID         string `json:"senderId"`
}

type paramsResponse struct {
	ParamsB64 string `json:"paramsB64"`
}

type errorResponse struct {
	Message string   `json:"message"`
	Code    string   `json:"code"`
	Errors  []string `json:"errors"`
}

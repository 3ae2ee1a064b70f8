package httpapi

import (
	"time"
	"unicode/utf8"
)

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (r loginRequest) valid() bool {
	return between(r.Login, 3, 30) && between(r.Password, 1, 50)
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r changePasswordRequest) valid() bool {
	return between(r.OldPassword, 0, 50) &&
		between(r.NewPassword, 3, 50) &&
		between(r.ConfirmPassword, 3, 50)
}

type sessionResponse struct {
	AccessToken string `json:"accessToken"`
	Login       string `json:"login"`
	Role        string `json:"role"`
}

type passwordChangeRequiredResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type meResponse struct {
	UserID    string    `json:"userId"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type healthResponse struct {
	Status         string `json:"status"`
	RedisLatencyMS int64  `json:"redisLatencyMs"`
}

func between(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

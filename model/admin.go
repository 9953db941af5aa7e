package model

import "time"

type Admin struct {
	ID           string    `json:"id"`
	PasswordHash []byte    `json:"password_hash"`
	Created      time.Time `json:"created"`
}

// Token records an issued refresh token until it is used or expires.
type Token struct {
	Credential     string    `json:"credential"`
	TokenID        string    `json:"token_id"`
	RefreshTokenID string    `json:"refresh_token_id"`
	Expiration     time.Time `json:"expiration"`
}

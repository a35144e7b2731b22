package domain

import "time"

// Authenticated is the result of a successful login or refresh: a short
// lived access token and the opaque refresh token that can renew it.
type Authenticated struct {
	AccessToken            string    `json:"accessToken"`
	RefreshToken           string    `json:"refreshToken"`
	AccessTokenExpiryTime  time.Time `json:"accessTokenExpiryTime"`
	RefreshTokenExpiryTime time.Time `json:"refreshTokenExpiryTime"`
}

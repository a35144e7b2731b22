package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Me retrieves the caller's claims.
// Automatically refreshes the access token if expired.
func (s *Session) Me(ctx context.Context) (*MeResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/me", nil)
	if err != nil {
		return nil, err
	}

	var me MeResponse
	if err := decodeJSON(resp, &me, http.StatusOK); err != nil {
		return nil, err
	}

	return &me, nil
}

// RevokeAll drops every refresh token of subject.
// Requires: Admin role
func (s *Session) RevokeAll(ctx context.Context, subject string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(subject), nil)
	if err != nil {
		return err
	}

	return checkStatusNoContent(resp)
}

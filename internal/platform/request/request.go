// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

/*
Package requestutil provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/platform/constants"
	"github.com/hydroline/hydroline-services/internal/platform/ctxutil"
	"github.com/hydroline/hydroline-services/internal/platform/middleware"
	"github.com/hydroline/hydroline-services/internal/platform/sec"
	"github.com/hydroline/hydroline-services/internal/platform/validate"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

An empty body decodes to the zero value so that the validator can report
the missing fields individually.

Parameters:
  - writer: http.ResponseWriter (used to cap the body size)
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	body := http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Principal extracts the authenticated principal from the request context.

Returns nil if the request is not authenticated.
*/
func Principal(request *http.Request) *sec.Principal {
	return ctxutil.GetPrincipal(request.Context())
}

/*
RequiredPrincipal ensures the request is authenticated and returns the principal.

Returns:
  - *sec.Principal: The authenticated identity
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredPrincipal(request *http.Request) (*sec.Principal, error) {
	principal := ctxutil.GetPrincipal(request.Context())
	if principal == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return principal, nil
}

// ClientInfo is the device and address recorded on a new session.
type ClientInfo struct {
	DeviceInfo string
	IPAddress  string
}

// BearerToken returns the bearer token of the request, or "" when absent.
func BearerToken(request *http.Request) string {
	token, _ := middleware.BearerToken(request.Header.Get(constants.HeaderAuthorization))
	return token
}

/*
Client reads the User-Agent and client IP of the request.

Missing values are replaced by the "Unknown Device" / "Unknown IP" placeholders.
*/
func Client(request *http.Request) ClientInfo {
	info := ClientInfo{
		DeviceInfo: strings.TrimSpace(request.Header.Get(constants.HeaderUserAgent)),
		IPAddress:  middleware.RealIP(request),
	}

	if info.DeviceInfo == "" {
		info.DeviceInfo = constants.UnknownDevice
	}
	if info.IPAddress == "" {
		info.IPAddress = constants.UnknownIP
	}

	return info
}

// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Architecture
//
// This package centralizes the presentation logic for HTTP responses.
// Every response (Success or Error) is wrapped in the same envelope:
//
//	{"code": 200, "status": "success", "message": null, "data": {...}, "timestamp": 1718000000000}
//
// Error responses additionally carry the machine-readable "error" code and
// optional "details".
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/platform/constants"
	"github.com/hydroline/hydroline-services/internal/platform/ctxutil"
	"github.com/hydroline/hydroline-services/pkg/pagination"
)

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Code      int                 `json:"code"`
	Status    string              `json:"status"`
	Message   *string             `json:"message"`
	Data      any                 `json:"data"`
	Error     string              `json:"error,omitempty"`
	Details   []apperr.FieldError `json:"details,omitempty"`
	Meta      *pagination.Meta    `json:"meta,omitempty"`
	Timestamp int64               `json:"timestamp"`
}

// now is swapped in tests.
var now = time.Now

// JSON writes a raw JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// Success writes data wrapped in the success envelope.
func Success(writer http.ResponseWriter, statusCode int, data any) {
	JSON(writer, statusCode, Envelope{
		Code:      statusCode,
		Status:    constants.StatusSuccess,
		Data:      data,
		Timestamp: now().UnixMilli(),
	})
}

// OK writes a 200 OK response with data wrapped in the standard success envelope.
func OK(writer http.ResponseWriter, data any) {
	Success(writer, http.StatusOK, data)
}

// Created writes a 201 Created response with data wrapped in the standard success envelope.
func Created(writer http.ResponseWriter, data any) {
	Success(writer, http.StatusCreated, data)
}

// Paginated writes a 200 OK envelope carrying one page of data and its meta block.
func Paginated(writer http.ResponseWriter, data any, meta pagination.Meta) {
	JSON(writer, http.StatusOK, Envelope{
		Code:      http.StatusOK,
		Status:    constants.StatusSuccess,
		Data:      data,
		Meta:      &meta,
		Timestamp: now().UnixMilli(),
	})
}

// Message writes a 200 OK envelope with a human-readable message and no data.
func Message(writer http.ResponseWriter, message string) {
	JSON(writer, http.StatusOK, Envelope{
		Code:      http.StatusOK,
		Status:    constants.StatusSuccess,
		Message:   &message,
		Timestamp: now().UnixMilli(),
	})
}

// Redirect sends a 302 to location.
func Redirect(writer http.ResponseWriter, request *http.Request, location string) {
	http.Redirect(writer, request, location, http.StatusFound)
}

// Error converts any Go error into a standardized JSON API error response.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	var appError *apperr.AppError
	if !errors.As(err, &appError) {
		// Unexpected internal error: log full details but hide them from the client.
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "unhandled_error_swallowed",
			slog.String("error", err.Error()),
			slog.String("request_id", ctxutil.GetRequestID(request.Context())),
		)
		appError = apperr.Internal(err)
	}

	// Always log 5xx errors as they indicate server-side issues.
	if appError.HTTPStatus >= 500 {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.GetRequestID(request.Context())),
			slog.Any("cause", appError.Cause),
		)
	}

	message := appError.Message
	JSON(writer, appError.HTTPStatus, Envelope{
		Code:      appError.HTTPStatus,
		Status:    constants.StatusError,
		Message:   &message,
		Error:     appError.Code,
		Details:   appError.Details,
		Timestamp: now().UnixMilli(),
	})
}

// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package webutil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

var ErrNotFound = errors.New("not found")

type APIErrorCode string

const (
	CodeNotFound    APIErrorCode = "NOT_FOUND"
	CodeBadRequest  APIErrorCode = "BAD_REQUEST"
	CodeRateLimited APIErrorCode = "RATE_LIMITED"
	CodeInternal    APIErrorCode = "INTERNAL_ERROR"
)

type APIError struct {
	Status  int          `json:"status"`
	Code    APIErrorCode `json:"code"`
	Message string       `json:"message"`
}

func WriteAPIError(w http.ResponseWriter, status int, code APIErrorCode, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIError{
		Status:  status,
		Code:    code,
		Message: msg,
	})
}

// WriteJSON writes v with status and any extra headers.
func WriteJSON(w http.ResponseWriter, status int, v any, header http.Header) {
	CopyHeaders(w, header)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Writing JSON response failed", slog.Any("error", err))
	}
}

// WrapOrNotFound writes value as a 200 response when ok, else a 404.
func WrapOrNotFound[T any](w http.ResponseWriter, value T, ok bool, header http.Header) {
	if !ok {
		WriteAPIError(w, http.StatusNotFound, CodeNotFound, ErrNotFound.Error())
		return
	}
	WriteJSON(w, http.StatusOK, value, header)
}

// WriteError maps err to a status code. ErrNotFound becomes a 404; anything
// else is logged and reported as a 500.
func WriteError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		WriteAPIError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	slog.Error("Request failed", slog.Any("error", err))
	WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

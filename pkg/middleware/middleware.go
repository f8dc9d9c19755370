// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package middleware holds the HTTP behaviors the fosol server wraps around
// every route. Each constructor returns a mux.MiddlewareFunc.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	queryKey
	clientIPKey
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      int       `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		requestLogger(r).Error().Err(err).Msg("encoding JSON response")
	}
}

// WriteError writes an ErrorBody. A non-nil err goes into details and the log.
func WriteError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	body := ErrorBody{Error: ErrorDetail{
		Code:      status,
		Message:   message,
		RequestID: RequestIDFromContext(r.Context()),
		Timestamp: time.Now().UTC(),
	}}
	if err != nil {
		body.Error.Details = err.Error()
		ev := requestLogger(r).Warn()
		if status >= http.StatusInternalServerError {
			ev = requestLogger(r).Error()
		}
		ev.Err(err).Int("status", status).Msg(message)
	}
	WriteJSON(w, r, status, body)
}

func requestLogger(r *http.Request) *zerolog.Logger {
	return hlog.FromRequest(r)
}

func withValue(r *http.Request, key ctxKey, v any) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), key, v))
}

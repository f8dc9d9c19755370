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

package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/walteh/fosol/pkg/uri"
)

// ParseQuery parses the raw query once and stores it for handlers. A
// malformed query is answered with 400.
func ParseQuery() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q, err := uri.ParseQuery(r.URL.RawQuery)
			if err != nil {
				WriteError(w, r, http.StatusBadRequest, "malformed query string", err)
				return
			}
			next.ServeHTTP(w, withValue(r, queryKey, q))
		})
	}
}

// QueryFromContext returns the query stored by ParseQuery.
func QueryFromContext(ctx context.Context) (uri.Query, bool) {
	q, ok := ctx.Value(queryKey).(uri.Query)
	return q, ok
}

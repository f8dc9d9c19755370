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
	"net"
	"net/http"
	"slices"

	"github.com/gorilla/mux"
	"github.com/walteh/fosol/pkg/config"
	"github.com/walteh/fosol/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// HeaderKeys are the values available to header templates.
var HeaderKeys = []string{"request_id", "host", "path", "method", "remote_ip"}

type compiledHeader struct {
	name string
	tmpl *text.Template
}

// Headers sets each configured header on the response. Values are templates
// over HeaderKeys, compiled once here.
func Headers(headers []config.HeaderElement) (mux.MiddlewareFunc, error) {
	compiled := make([]compiledHeader, 0, len(headers))
	for _, h := range headers {
		if h.Name == "" {
			return nil, errors.Errorf("header with value %q has no name", h.Value)
		}
		tmpl, err := text.Parse(h.Value)
		if err != nil {
			return nil, errors.Errorf("compiling header %s: %w", h.Name, err)
		}
		for _, k := range tmpl.Keys() {
			if !slices.Contains(HeaderKeys, k) {
				return nil, errors.Errorf("header %s: unknown key %q, want one of %v", h.Name, k, HeaderKeys)
			}
		}
		compiled = append(compiled, compiledHeader{name: http.CanonicalHeaderKey(h.Name), tmpl: tmpl})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data := headerData(r)
			for _, h := range compiled {
				v, err := h.tmpl.Render(data)
				if err != nil {
					WriteError(w, r, http.StatusInternalServerError, "rendering response header", err)
					return
				}
				w.Header().Set(h.name, v)
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

func headerData(r *http.Request) text.Data {
	remote := r.RemoteAddr
	if ip, ok := ClientIPFromContext(r.Context()); ok {
		remote = ip.String()
	} else if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remote = h
	}
	return text.StringMap{
		"request_id": RequestIDFromContext(r.Context()),
		"host":       r.Host,
		"path":       r.URL.Path,
		"method":     r.Method,
		"remote_ip":  remote,
	}
}

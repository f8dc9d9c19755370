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

package server

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/walteh/fosol/pkg/config"
	"github.com/walteh/fosol/pkg/imaging"
	"github.com/walteh/fosol/pkg/middleware"
	"github.com/walteh/fosol/pkg/text"
	"github.com/walteh/fosol/pkg/uri"
	"gitlab.com/tozd/go/errors"
)

// routes holds what the handlers need from one config generation.
type routes struct {
	cfg          *config.Config
	templates    map[string]*text.Template
	maxBodyBytes int64
	maxPixels    int64
}

func (rt *routes) handleHealth(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, r, http.StatusNotFound, "not found", nil)
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
}

// handleRender renders a configured template with the query parameters.
func (rt *routes) handleRender(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	tmpl, ok := rt.templates[name]
	if !ok {
		middleware.WriteError(w, r, http.StatusNotFound, "unknown template "+strconv.Quote(name), nil)
		return
	}

	q, _ := middleware.QueryFromContext(r.Context())
	out, err := tmpl.Render(queryData(q))
	if err != nil {
		if errors.Is(err, text.ErrMissingKey) {
			middleware.WriteError(w, r, http.StatusUnprocessableEntity, "missing template value", err)
			return
		}
		middleware.WriteError(w, r, http.StatusInternalServerError, "rendering template", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

func queryData(q uri.Query) text.Data {
	return text.DataFunc(func(key string) (any, bool) {
		if !q.Has(key) {
			return nil, false
		}
		return q.Get(key), true
	})
}

// URIParam is one query pair in a URIResponse.
type URIParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// URIResponse is the JSON body of GET /uri.
type URIResponse struct {
	Scheme        string     `json:"scheme,omitempty"`
	User          string     `json:"user,omitempty"`
	Host          string     `json:"host,omitempty"`
	Port          int        `json:"port,omitempty"`
	EffectivePort int        `json:"effective_port,omitempty"`
	Path          string     `json:"path"`
	Query         []URIParam `json:"query"`
	Fragment      string     `json:"fragment,omitempty"`
	Normalized    string     `json:"normalized"`
}

func newURIResponse(b *uri.Builder) URIResponse {
	resp := URIResponse{
		Scheme:        b.Scheme,
		User:          b.User,
		Host:          b.Host,
		Port:          b.Port,
		EffectivePort: b.EffectivePort(),
		Path:          b.Path,
		Query:         make([]URIParam, 0, b.Query.Len()),
		Fragment:      b.Fragment,
		Normalized:    b.String(),
	}
	for _, p := range b.Query {
		resp.Query = append(resp.Query, URIParam{Key: p.Key, Value: p.Value})
	}
	return resp
}

func (rt *routes) handleURI(w http.ResponseWriter, r *http.Request) {
	q, _ := middleware.QueryFromContext(r.Context())
	raw := q.Get("u")
	if raw == "" {
		middleware.WriteError(w, r, http.StatusBadRequest, "query parameter u is required", nil)
		return
	}

	b, err := uri.Parse(raw)
	if err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "invalid uri", err)
		return
	}
	middleware.WriteJSON(w, r, http.StatusOK, newURIResponse(b))
}

// handleFit fits the request body image inside w×h, capped by the configured
// maximum, and answers with the encoded result.
func (rt *routes) handleFit(w http.ResponseWriter, r *http.Request) {
	q, _ := middleware.QueryFromContext(r.Context())

	width, err := dimension(q, "w", rt.cfg.Images.MaxWidth)
	if err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "invalid width", err)
		return
	}
	height, err := dimension(q, "h", rt.cfg.Images.MaxHeight)
	if err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "invalid height", err)
		return
	}

	filter, err := imaging.ParseFilter(rt.cfg.Images.Filter)
	if err != nil {
		middleware.WriteError(w, r, http.StatusInternalServerError, "configured filter", err)
		return
	}

	body := http.MaxBytesReader(w, r.Body, rt.maxBodyBytes)
	img, format, err := imaging.DecodeLimited(body, rt.maxPixels)
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig), errors.Is(err, imaging.ErrTooManyPixels):
			middleware.WriteError(w, r, http.StatusRequestEntityTooLarge, "image too large", err)
		case errors.Is(err, imaging.ErrUnsupportedFormat):
			middleware.WriteError(w, r, http.StatusUnsupportedMediaType, "unsupported image format", err)
		default:
			middleware.WriteError(w, r, http.StatusBadRequest, "decoding image", err)
		}
		return
	}

	if f := q.Get("format"); f != "" {
		format, err = imaging.ParseFormat(f)
		if err != nil {
			middleware.WriteError(w, r, http.StatusBadRequest, "invalid output format", err)
			return
		}
	}

	out, err := imaging.Fit(img, width, height, filter)
	if err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "fitting image", err)
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, format, imaging.Options{Filter: filter, Quality: rt.cfg.Images.Quality}); err != nil {
		middleware.WriteError(w, r, http.StatusInternalServerError, "encoding image", err)
		return
	}

	size := out.Bounds().Size()
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Image-Width", strconv.Itoa(size.X))
	w.Header().Set("X-Image-Height", strconv.Itoa(size.Y))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// dimension reads a positive size from q, defaulting to and capped at limit.
func dimension(q uri.Query, key string, limit int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return limit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Errorf("%s=%q: %w", key, raw, err)
	}
	if n <= 0 {
		return 0, errors.Errorf("%s=%d: must be positive", key, n)
	}
	return min(n, limit), nil
}

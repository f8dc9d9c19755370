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
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gorilla/mux"
	"github.com/walteh/fosol/pkg/uri"
	"gitlab.com/tozd/go/errors"
)

// 🛡️ IPList is a set of addresses and networks
type IPList struct {
	prefixes []netip.Prefix
}

// ParseIPList accepts single addresses and CIDRs, IPv4 or IPv6.
func ParseIPList(entries []string) (*IPList, error) {
	list := &IPList{}
	var errs []error
	for i, raw := range entries {
		s := strings.TrimSpace(raw)
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				errs = append(errs, errors.Errorf("entry %d: %w", i, err))
				continue
			}
			if p.Addr().Is4In6() && p.Bits() >= 96 {
				p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits()-96)
			}
			list.prefixes = append(list.prefixes, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(s)
		if err != nil {
			errs = append(errs, errors.Errorf("entry %d: %w", i, err))
			continue
		}
		a = a.Unmap().WithZone("")
		list.prefixes = append(list.prefixes, netip.PrefixFrom(a, a.BitLen()))
	}
	if len(errs) > 0 {
		return nil, errors.Errorf("parsing IP list: %w", errors.Join(errs...))
	}
	return list, nil
}

// Contains reports whether addr is in the list. An empty or nil list contains everything.
func (l *IPList) Contains(addr netip.Addr) bool {
	if l.Len() == 0 {
		return true
	}
	addr = addr.Unmap().WithZone("")
	for _, p := range l.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (l *IPList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.prefixes)
}

func (l *IPList) String() string {
	parts := make([]string, 0, l.Len())
	if l != nil {
		for _, p := range l.prefixes {
			parts = append(parts, p.String())
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// ClientIP resolves the caller's address. With trustForwardedFor the left-most
// valid X-Forwarded-For entry wins, falling back to RemoteAddr.
func ClientIP(r *http.Request, trustForwardedFor bool) (netip.Addr, error) {
	if trustForwardedFor {
		for _, header := range r.Header.Values("X-Forwarded-For") {
			for _, part := range strings.Split(header, ",") {
				if a, err := netip.ParseAddr(strings.TrimSpace(part)); err == nil {
					return a.Unmap().WithZone(""), nil
				}
			}
		}
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	a, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, errors.Errorf("parsing remote address %q: %w", r.RemoteAddr, err)
	}
	return a.Unmap().WithZone(""), nil
}

// ClientIPFromContext returns the address resolved by AllowIPs.
func ClientIPFromContext(ctx context.Context) (netip.Addr, bool) {
	a, ok := ctx.Value(clientIPKey).(netip.Addr)
	return a, ok
}

// AllowIPs rejects clients outside list with 403. Paths matching a public
// pattern are always let through.
func AllowIPs(list *IPList, trustForwardedFor bool, public []*uri.Pattern) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, err := ClientIP(r, trustForwardedFor)
			if err == nil {
				r = withValue(r, clientIPKey, ip)
			}

			switch {
			case list.Len() == 0:
			case err == nil && list.Contains(ip):
			case uri.MatchAny(public, r.URL.Path):
			default:
				requestLogger(r).Debug().Str("client_ip", ip.String()).Str("path", r.URL.Path).Msg("client not in allowed IPs")
				WriteError(w, r, http.StatusForbidden, "forbidden", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

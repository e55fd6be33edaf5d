package httpmiddleware

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/go-faster/errors"
)

// ClientIPResolver finds the client address of a request. X-Forwarded-For
// and X-Real-IP are read only when the direct peer is a trusted proxy.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver parses trusted proxies given as addresses or CIDR
// prefixes. With none, every request resolves to its direct peer.
func NewClientIPResolver(trusted []string) (*ClientIPResolver, error) {
	res := &ClientIPResolver{}
	for _, s := range trusted {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, errors.Wrapf(err, "trusted proxy %q", s)
			}
			res.trusted = append(res.trusted, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, errors.Wrapf(err, "trusted proxy %q", s)
		}
		addr = addr.Unmap()
		res.trusted = append(res.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return res, nil
}

// ClientIP walks X-Forwarded-For from the nearest hop and returns the first
// address that is not a trusted proxy.
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	peer := ClientIP(r)
	if !c.isTrusted(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if _, err := netip.ParseAddr(hop); err != nil {
				// Garbage in the chain; stop at the last hop we could trust.
				return peer
			}
			if !c.isTrusted(hop) || i == 0 {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}
	return peer
}

func (c *ClientIPResolver) isTrusted(host string) bool {
	if len(c.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

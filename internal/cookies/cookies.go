// Package cookies resolves the authentication cookies a provider needs,
// from inline values, an interactive sign-in, or the local Chrome store.
package cookies

import (
	"net/url"
	"sort"
	"strings"

	"github.com/go-rod/rod/lib/proto"
)

// Map is cookie name to value for one provider
type Map map[string]string

// Source names where a resolved Map came from
type Source string

const (
	SourceInline      Source = "inline"
	SourceInteractive Source = "interactive"
	SourceNative      Source = "native"
)

// Spec describes which cookies a provider needs and where they live.
type Spec struct {
	Provider   string
	Required   []string // must all be present and non-empty
	Allow      []string // names read from stores; Required is always included
	Origins    []string // e.g. https://chatgpt.com
	ApexDomain string   // e.g. chatgpt.com
	SignInURL  string
}

// Satisfies reports whether every required cookie is present and non-empty.
func (s Spec) Satisfies(m Map) bool {
	for _, name := range s.Required {
		if m[name] == "" {
			return false
		}
	}
	return true
}

// Missing lists the required names that are absent or empty.
func (s Spec) Missing(m Map) []string {
	var out []string
	for _, name := range s.Required {
		if m[name] == "" {
			out = append(out, name)
		}
	}
	return out
}

// Allowed reports whether name is one the provider cares about.
func (s Spec) Allowed(name string) bool {
	for _, n := range s.Required {
		if n == name {
			return true
		}
	}
	for _, n := range s.Allow {
		if n == name {
			return true
		}
	}
	return false
}

// Names returns Required plus Allow, deduplicated.
func (s Spec) Names() []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range append(append([]string(nil), s.Required...), s.Allow...) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// Hosts returns the hostnames of Origins.
func (s Spec) Hosts() []string {
	var out []string
	for _, o := range s.Origins {
		if u, err := url.Parse(o); err == nil && u.Hostname() != "" {
			out = append(out, strings.ToLower(u.Hostname()))
		}
	}
	return out
}

// Merge returns m with over applied on top. Neither input is modified.
func (m Map) Merge(over Map) Map {
	out := make(Map, len(m)+len(over))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range over {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Names returns the cookie names in sorted order.
func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Candidate is one stored cookie before the domain rule picks a winner.
type Candidate struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

// Pick reduces candidates to one value per name. Preference: exact apex
// domain (leading dot ignored) with path "/", then any domain that is a
// suffix of the apex, then the first seen.
func Pick(cands []Candidate, apex string) Map {
	apex = normalizeDomain(apex)
	type ranked struct {
		value string
		rank  int
	}
	best := map[string]ranked{}
	for _, c := range cands {
		if c.Value == "" {
			continue
		}
		r := rankDomain(c, apex)
		if cur, ok := best[c.Name]; !ok || r > cur.rank {
			best[c.Name] = ranked{value: c.Value, rank: r}
		}
	}
	out := make(Map, len(best))
	for name, r := range best {
		out[name] = r.value
	}
	return out
}

func rankDomain(c Candidate, apex string) int {
	d := normalizeDomain(c.Domain)
	switch {
	case apex == "":
		return 0
	case d == apex && (c.Path == "/" || c.Path == ""):
		return 2
	case d != "" && (d == apex || strings.HasSuffix(apex, "."+d)):
		return 1
	}
	return 0
}

func normalizeDomain(d string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "."))
}

// hostMatches reports whether a stored cookie host belongs to one of hosts.
func hostMatches(hostKey string, hosts []string) bool {
	h := normalizeDomain(hostKey)
	for _, want := range hosts {
		if h == want || strings.HasSuffix(want, "."+h) || strings.HasSuffix(h, "."+want) {
			return true
		}
	}
	return false
}

// FromProtocol converts cookies read from a live page.
func FromProtocol(jar []*proto.NetworkCookie) []Candidate {
	out := make([]Candidate, 0, len(jar))
	for _, c := range jar {
		out = append(out, Candidate{Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path})
	}
	return out
}

// Params turns m into cookies that can be installed on a page before the
// provider is loaded.
func Params(spec Spec, m Map) []*proto.NetworkCookieParam {
	domain := "." + normalizeDomain(spec.ApexDomain)
	var out []*proto.NetworkCookieParam
	for _, name := range m.Names() {
		p := &proto.NetworkCookieParam{
			Name:   name,
			Value:  m[name],
			Path:   "/",
			Secure: true,
		}
		if spec.ApexDomain != "" {
			p.Domain = domain
		} else if len(spec.Origins) > 0 {
			p.URL = spec.Origins[0]
		}
		// __Host- cookies must not carry a Domain attribute
		if strings.HasPrefix(name, "__Host-") && len(spec.Origins) > 0 {
			p.Domain = ""
			p.URL = spec.Origins[0]
		}
		out = append(out, p)
	}
	return out
}

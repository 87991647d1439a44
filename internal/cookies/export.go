package cookies

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/itchyny/gojq"
)

// exportQuery flattens the cookie export shapes seen in the wild:
// a bare array (EditThisCookie, Cookie-Editor), {"cookies": [...]}
// (Playwright storage state) and a plain name→value object.
const exportQuery = `
if type == "object" and has("cookies") then .cookies else . end
| if type == "array" then
    .[] | {
      name: (.name // .Name // ""),
      value: ((.value // .Value // "") | tostring),
      domain: (.domain // .Domain // .host // ""),
      path: (.path // .Path // "/")
    }
  else
    to_entries[] | {name: .key, value: (.value | tostring), domain: "", path: "/"}
  end
`

var exportCode *gojq.Code

func init() {
	q, err := gojq.Parse(exportQuery)
	if err != nil {
		panic(err)
	}
	exportCode, err = gojq.Compile(q)
	if err != nil {
		panic(err)
	}
}

// ParseExport normalises a JSON cookie export into candidates.
func ParseExport(data []byte) ([]Candidate, error) {
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("invalid cookie export: %w", err)
	}

	var out []Candidate
	iter := exportCode.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("cookie export: %w", err)
		}
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		c := Candidate{
			Name:   asString(m["name"]),
			Value:  asString(m["value"]),
			Domain: asString(m["domain"]),
			Path:   asString(m["path"]),
		}
		if c.Name != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// LoadExport reads a cookie export file and keeps the cookies spec cares
// about. Cookies scoped to an unrelated domain are dropped.
func LoadExport(path string, spec Spec) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cookie export: %w", err)
	}
	cands, err := ParseExport(data)
	if err != nil {
		return nil, err
	}

	hosts := spec.Hosts()
	if spec.ApexDomain != "" {
		hosts = append(hosts, normalizeDomain(spec.ApexDomain))
	}
	var kept []Candidate
	for _, c := range cands {
		if c.Domain != "" && len(hosts) > 0 && !hostMatches(c.Domain, hosts) {
			continue
		}
		kept = append(kept, c)
	}
	return Pick(kept, spec.ApexDomain), nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// Package contract loads the OpenAPI document that declares the service's
// routes and dispatches matching HTTP requests to operations registered by
// operationId.
//
// Loading, document validation and request validation are done by
// kin-openapi. Route matching is done by net/http's ServeMux, so every
// contract path must translate to a valid, unambiguous mux pattern; that is
// checked when the document is parsed.
package contract

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/routers"
)

// MaxDocumentSize bounds the contract file read at startup.
const MaxDocumentSize = 1 << 20

//go:embed restaurants.yaml
var defaultDocument []byte

// Document is a loaded, validated contract.
type Document struct {
	Spec *openapi3.T

	routes []Route
}

// Route is one method+path pair of the contract.
type Route struct {
	Method      string
	Path        string
	OperationID string
	// Wildcards are the path template names, in path order.
	Wildcards []string
	// HasBody is set when the operation declares a JSON request body;
	// BodyNeeded when that body is required.
	HasBody    bool
	BodyNeeded bool

	pattern string
	spec    *routers.Route
}

func (r Route) String() string {
	return r.Method + " " + r.Path
}

// Default returns the contract embedded in the binary.
func Default() (*Document, error) {
	return Parse(defaultDocument)
}

func Load(path string) (*Document, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.Size() > MaxDocumentSize {
		return nil, fmt.Errorf("contract %s is %d bytes, limit is %d", path, st.Size(), MaxDocumentSize)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("contract %s: %w", path, err)
	}
	return doc, nil
}

func Parse(b []byte) (*Document, error) {
	if len(b) > MaxDocumentSize {
		return nil, fmt.Errorf("contract is %d bytes, limit is %d", len(b), MaxDocumentSize)
	}

	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData(b)
	if err != nil {
		return nil, fmt.Errorf("load contract: %w", err)
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return nil, errors.New("contract declares no paths")
	}
	ctx := loader.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if err := spec.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid contract: %w", err)
	}

	doc := &Document{Spec: spec}
	if err := doc.resolveRoutes(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Routes returns the routes sorted by path then method.
func (d *Document) Routes() []Route {
	out := make([]Route, len(d.routes))
	copy(out, d.routes)
	return out
}

// OperationIDs returns the distinct operation names the contract declares.
func (d *Document) OperationIDs() []string {
	seen := map[string]bool{}
	var ids []string
	for _, r := range d.routes {
		if !seen[r.OperationID] {
			seen[r.OperationID] = true
			ids = append(ids, r.OperationID)
		}
	}
	sort.Strings(ids)
	return ids
}

// wildcard matches a template segment ServeMux accepts as a wildcard name.
var wildcard = regexp.MustCompile(`^\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

func (d *Document) resolveRoutes() error {
	// normalized mux pattern -> contract path, to catch /a/{x} vs /a/{y}
	patterns := map[string]string{}
	var routes []Route

	for path, item := range d.Spec.Paths.Map() {
		pattern, names, err := muxPattern(path)
		if err != nil {
			return fmt.Errorf("path %s: %w", path, err)
		}
		key := normalizedKey(pattern)
		if other, ok := patterns[key]; ok {
			return fmt.Errorf("paths %s and %s match the same requests", other, path)
		}
		patterns[key] = path

		for method, op := range item.Operations() {
			where := method + " " + path
			if op.OperationID == "" {
				return fmt.Errorf("%s: missing operationId", where)
			}
			rt := Route{
				Method:      method,
				Path:        path,
				OperationID: op.OperationID,
				Wildcards:   names,
				pattern:     pattern,
				spec: &routers.Route{
					Spec:      d.Spec,
					Path:      path,
					PathItem:  item,
					Method:    method,
					Operation: op,
				},
			}
			if rb := op.RequestBody; rb != nil && rb.Value != nil {
				if rb.Value.Content.Get("application/json") == nil {
					return fmt.Errorf("%s: request body must declare application/json", where)
				}
				rt.HasBody = true
				rt.BodyNeeded = rb.Value.Required
			}
			routes = append(routes, rt)
		}
	}

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	d.routes = routes
	return nil
}

// muxPattern turns a contract path into a ServeMux pattern without a
// method. A trailing slash is anchored with {$} so it does not match a
// whole subtree.
func muxPattern(path string) (string, []string, error) {
	if !strings.HasPrefix(path, "/") {
		return "", nil, errors.New("must start with /")
	}
	if strings.ContainsAny(path, " \t\r\n") {
		return "", nil, errors.New("must not contain whitespace")
	}

	var names []string
	seen := map[string]bool{}
	for _, seg := range strings.Split(path, "/") {
		if !strings.ContainsAny(seg, "{}") {
			continue
		}
		m := wildcard.FindStringSubmatch(seg)
		if m == nil {
			return "", nil, fmt.Errorf("segment %q: a parameter must fill the whole segment and be a Go identifier", seg)
		}
		if seen[m[1]] {
			return "", nil, fmt.Errorf("parameter {%s} appears twice", m[1])
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}

	pattern := path
	if strings.HasSuffix(pattern, "/") {
		pattern += "{$}"
	}
	return pattern, names, nil
}

// normalizedKey drops wildcard names so patterns that only differ by them
// compare equal.
func normalizedKey(pattern string) string {
	segs := strings.Split(pattern, "/")
	for i, seg := range segs {
		if wildcard.MatchString(seg) {
			segs[i] = "{}"
		}
	}
	return strings.Join(segs, "/")
}

package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
)

// DefaultMaxBodyBytes caps request bodies read by the dispatcher.
const DefaultMaxBodyBytes = 2 << 20

// Request is what an operation sees of an inbound call, after the
// dispatcher has matched it to a route and validated it.
type Request struct {
	HTTP   *http.Request
	Route  Route
	Params map[string]string
	Body   []byte
}

func (r *Request) Context() context.Context {
	return r.HTTP.Context()
}

func (r *Request) Param(name string) string {
	return r.Params[name]
}

// Decode unmarshals the validated JSON body into v.
func (r *Request) Decode(v any) error {
	if len(r.Body) == 0 {
		return errors.New("empty request body")
	}
	return json.Unmarshal(r.Body, v)
}

// Reply collects the status and payload an operation produces. The status
// defaults to 200; a nil payload or a 204 writes no body.
type Reply struct {
	status  int
	payload any
}

func (r *Reply) Code(status int) *Reply {
	r.status = status
	return r
}

func (r *Reply) Send(payload any) {
	r.payload = payload
}

func (r *Reply) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *Reply) Payload() any {
	return r.payload
}

// Operation is one named unit of business logic the contract can route to.
type Operation func(req *Request, reply *Reply)

// Operations maps contract operationIds to their implementations.
type Operations map[string]Operation

// UnboundError lists contract operationIds that have no implementation.
type UnboundError struct {
	OperationIDs []string
}

func (e *UnboundError) Error() string {
	return "contract operations without implementation: " + strings.Join(e.OperationIDs, ", ")
}

// Observer is told about every dispatched request. operationID is empty for
// requests that matched no route.
type Observer func(operationID string, status int, elapsed time.Duration)

type Options struct {
	Logger       *slog.Logger
	Observe      Observer
	MaxBodyBytes int64
}

type errorBody struct {
	Message string `json:"message"`
}

// Dispatcher is the http.Handler produced by Bind.
type Dispatcher struct {
	mux     *http.ServeMux
	routes  []Route
	log     *slog.Logger
	observe Observer
	maxBody int64
}

type boundRoute struct {
	route Route
	op    Operation
}

// Bind matches every operationId in doc to ops. It fails if any contract
// operation has no implementation; implementations the contract never
// mentions are only logged.
func Bind(doc *Document, ops Operations, opts Options) (*Dispatcher, error) {
	d := &Dispatcher{
		mux:     http.NewServeMux(),
		routes:  doc.Routes(),
		log:     opts.Logger,
		observe: opts.Observe,
		maxBody: opts.MaxBodyBytes,
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	if d.maxBody <= 0 {
		d.maxBody = DefaultMaxBodyBytes
	}

	var missing []string
	for _, id := range doc.OperationIDs() {
		if ops[id] == nil {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &UnboundError{OperationIDs: missing}
	}

	used := map[string]bool{}
	byPath := map[string]map[string]boundRoute{}
	patterns := map[string]string{}
	var paths []string
	for _, rt := range d.routes {
		if byPath[rt.Path] == nil {
			byPath[rt.Path] = map[string]boundRoute{}
			patterns[rt.Path] = rt.pattern
			paths = append(paths, rt.Path)
		}
		byPath[rt.Path][rt.Method] = boundRoute{route: rt, op: ops[rt.OperationID]}
		used[rt.OperationID] = true
		d.log.Debug("route bound", "method", rt.Method, "path", rt.Path, "operation", rt.OperationID)
	}

	var extra []string
	for id := range ops {
		if !used[id] {
			extra = append(extra, id)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		d.log.Warn("operations not referenced by contract", "operations", extra)
	}

	for _, p := range paths {
		if err := d.register(patterns[p], d.pathHandler(p, byPath[p])); err != nil {
			return nil, err
		}
	}
	// contract paths are exact, "/" included, so the catch-all never clashes
	if err := d.register("/", http.HandlerFunc(d.notFound)); err != nil {
		return nil, err
	}
	return d, nil
}

// register reports mux pattern errors instead of panicking.
func (d *Dispatcher) register(pattern string, h http.Handler) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("register route %s: %v", pattern, rec)
		}
	}()
	d.mux.Handle(pattern, h)
	return nil
}

// Handle registers a non-contract route such as /metrics on the same mux.
func (d *Dispatcher) Handle(pattern string, h http.Handler) {
	d.mux.Handle(pattern, h)
}

func (d *Dispatcher) Routes() []Route {
	out := make([]Route, len(d.routes))
	copy(out, d.routes)
	return out
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mux.ServeHTTP(w, r)
}

func (d *Dispatcher) notFound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	writeJSON(w, http.StatusNotFound, errorBody{
		Message: fmt.Sprintf("Route %s:%s not found", r.Method, r.URL.Path),
	})
	d.finish(r, "", http.StatusNotFound, start)
}

// pathHandler serves every method of one contract path. HEAD falls back to
// the GET operation with the body discarded.
func (d *Dispatcher) pathHandler(path string, methods map[string]boundRoute) http.HandlerFunc {
	allowed := make([]string, 0, len(methods)+1)
	for m := range methods {
		allowed = append(allowed, m)
	}
	_, hasGet := methods[http.MethodGet]
	_, hasHead := methods[http.MethodHead]
	if hasGet && !hasHead {
		allowed = append(allowed, http.MethodHead)
	}
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		br, ok := methods[r.Method]
		if !ok && r.Method == http.MethodHead && hasGet {
			br, ok = methods[http.MethodGet], true
			w = headWriter{w}
		}
		if !ok {
			w.Header().Set("Allow", allow)
			writeJSON(w, http.StatusMethodNotAllowed, errorBody{
				Message: fmt.Sprintf("Method %s not allowed on %s", r.Method, path),
			})
			d.finish(r, "", http.StatusMethodNotAllowed, start)
			return
		}
		status := d.dispatch(w, r, br)
		d.finish(r, br.route.OperationID, status, start)
	}
}

// headWriter keeps the headers of a GET reply and drops its body.
type headWriter struct {
	http.ResponseWriter
}

func (headWriter) Write(b []byte) (int, error) {
	return len(b), nil
}

func (d *Dispatcher) dispatch(w http.ResponseWriter, r *http.Request, br boundRoute) int {
	rt := br.route
	req := &Request{HTTP: r, Route: rt, Params: map[string]string{}}
	for _, name := range rt.Wildcards {
		req.Params[name] = r.PathValue(name)
	}

	if rt.HasBody {
		body, status, msg := d.readBody(w, r, rt)
		if status != 0 {
			return d.reject(w, status, msg)
		}
		req.Body = body
		r.Body = io.NopCloser(bytes.NewReader(body))
		if len(body) > 0 && r.Header.Get("Content-Type") == "" {
			r.Header.Set("Content-Type", "application/json")
		}
	}

	if rt.spec != nil {
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: req.Params,
			Route:      rt.spec,
			Options: &openapi3filter.Options{
				ExcludeRequestBody: len(req.Body) == 0,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			return d.reject(w, http.StatusBadRequest, validationMessage(err))
		}
	}

	reply := &Reply{}
	if err := d.invoke(br.op, req, reply); err != nil {
		d.log.Error("operation panicked", "operation", rt.OperationID, "error", err)
		return d.reject(w, http.StatusInternalServerError, "internal server error")
	}

	status := reply.Status()
	if reply.payload == nil || status == http.StatusNoContent {
		w.WriteHeader(status)
		return status
	}
	writeJSON(w, status, reply.payload)
	return status
}

// validationMessage renders a request validation failure as
// "<where>: <reason>", where is "body", "body/<field>" or "<in>/<param>".
func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return err.Error()
	}
	where := "body"
	if reqErr.Parameter != nil {
		where = reqErr.Parameter.In + "/" + reqErr.Parameter.Name
	}
	var schemaErr *openapi3.SchemaError
	if errors.As(reqErr.Err, &schemaErr) {
		if ptr := schemaErr.JSONPointer(); len(ptr) > 0 {
			where += "/" + strings.Join(ptr, "/")
		}
		return where + ": " + schemaErr.Reason
	}
	if reqErr.Err != nil {
		return where + ": " + reqErr.Err.Error()
	}
	return where + ": " + reqErr.Reason
}

func (d *Dispatcher) invoke(op Operation, req *Request, reply *Reply) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()
	op(req, reply)
	return nil
}

// readBody returns the raw body, or a non-zero status and message when the
// body is missing, too large, or not JSON. Schema checks happen afterwards.
func (d *Dispatcher) readBody(w http.ResponseWriter, r *http.Request, rt Route) ([]byte, int, string) {
	defer r.Body.Close()
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, d.maxBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, http.StatusRequestEntityTooLarge, "Request body is too large"
		}
		return nil, http.StatusBadRequest, "bad body"
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		if rt.BodyNeeded {
			return nil, http.StatusBadRequest, "body is required"
		}
		return nil, 0, ""
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return nil, http.StatusUnsupportedMediaType, fmt.Sprintf("Unsupported Media Type: %s", ct)
		}
	}

	if !json.Valid(raw) {
		return nil, http.StatusBadRequest, "body is not valid JSON"
	}
	return raw, 0, ""
}

func (d *Dispatcher) reject(w http.ResponseWriter, status int, msg string) int {
	writeJSON(w, status, errorBody{Message: msg})
	return status
}

func (d *Dispatcher) finish(r *http.Request, operationID string, status int, start time.Time) {
	elapsed := time.Since(start)
	if d.observe != nil {
		d.observe(operationID, status, elapsed)
	}
	d.log.Info("request completed",
		"method", r.Method,
		"path", r.URL.Path,
		"operation", operationID,
		"status", status,
		"duration_ms", float64(elapsed.Microseconds())/1000,
	)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

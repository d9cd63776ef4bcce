package httpadapter

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// requestValidator checks JSON request bodies against the embedded contract.
// Routes are resolved by the mux, so only the matching operation is looked up.
type requestValidator struct {
	spec   *openapi3.T
	routes map[string]*routers.Route
}

func newRequestValidator(raw []byte) (*requestValidator, error) {
	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	if err := spec.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	// Server URLs would otherwise constrain the request host.
	spec.Servers = nil

	v := &requestValidator{spec: spec, routes: make(map[string]*routers.Route)}
	for path, item := range spec.Paths.Map() {
		for method, operation := range item.Operations() {
			v.routes[routeKey(method, path)] = &routers.Route{
				Spec:      spec,
				Path:      path,
				PathItem:  item,
				Method:    method,
				Operation: operation,
			}
		}
	}
	return v, nil
}

func routeKey(method, path string) string {
	return method + " " + path
}

// Validate checks r against the operation registered for method and path. The
// request body stays readable afterwards.
func (v *requestValidator) Validate(r *http.Request, path string, pathParams map[string]string) error {
	route, ok := v.routes[routeKey(r.Method, path)]
	if !ok {
		return fmt.Errorf("no contract for %s %s", r.Method, path)
	}
	input := &openapi3filter.RequestValidationInput{
		Request:     r,
		PathParams:  pathParams,
		QueryParams: r.URL.Query(),
		Route:       route,
		Options: &openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}
	return openapi3filter.ValidateRequest(r.Context(), input)
}

// validationMessage keeps the reason of a contract violation and drops the
// schema dump kin-openapi appends.
func validationMessage(err error) string {
	var requestErr *openapi3filter.RequestError
	if !errors.As(err, &requestErr) {
		return err.Error()
	}
	var schemaErr *openapi3.SchemaError
	if errors.As(requestErr.Err, &schemaErr) {
		if field := schemaErr.JSONPointer(); len(field) > 0 {
			return fmt.Sprintf("invalid request body: %s: %s", strings.Join(field, "."), schemaErr.Reason)
		}
		return "invalid request body: " + schemaErr.Reason
	}
	if requestErr.Reason != "" {
		return "invalid request: " + requestErr.Reason
	}
	return "invalid request: " + requestErr.Error()
}

package chi

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// bindPath decodes a required simple-style path parameter into dest.
func bindPath(r *http.Request, name string, dest any) error {
	value, err := pathParam(r, name)
	if err != nil {
		return err
	}
	// the binder unescapes path values itself; hand it the value escaped exactly once
	err = runtime.BindStyledParameterWithOptions("simple", name, url.PathEscape(value), dest,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return nil
}

// pathParam returns a path parameter decoded exactly once. The router matches on the
// raw path when the request carried escapes that the decoded path cannot represent,
// and on the already decoded path otherwise.
func pathParam(r *http.Request, name string) (string, error) {
	value := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return value, nil
	}
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return "", fmt.Errorf("invalid escape in parameter %s: %w", name, err)
	}
	return decoded, nil
}

// bindQuery decodes a form-style query parameter into dest. Lists are comma separated.
func bindQuery(r *http.Request, name string, required bool, dest any) error {
	if err := runtime.BindQueryParameter("form", false, required, name, r.URL.Query(), dest); err != nil {
		return fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return nil
}

func pageParams(r *http.Request) (cursor string, limit int, err error) {
	if err := bindQuery(r, "cursor", false, &cursor); err != nil {
		return "", 0, err
	}
	if err := bindQuery(r, "limit", false, &limit); err != nil {
		return "", 0, err
	}
	if limit < 0 {
		return "", 0, fmt.Errorf("limit must not be negative")
	}
	return cursor, limit, nil
}

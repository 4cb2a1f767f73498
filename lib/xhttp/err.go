package xhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"oss.terrastruct.com/cmdlog"
)

// Error is an error carrying the status code and JSON body to answer with.
type Error struct {
	Code int
	Resp interface{}
	Err  error
}

// Errorf returns an Error with code and resp. A nil resp becomes the status text.
func Errorf(code int, resp interface{}, msg string, v ...interface{}) error {
	return ErrorWrap(code, resp, fmt.Errorf(msg, v...))
}

func ErrorWrap(code int, resp interface{}, err error) error {
	if resp == nil {
		resp = http.StatusText(code)
	}
	return Error{Code: code, Resp: resp, Err: err}
}

func (e Error) Unwrap() error {
	return e.Err
}

func (e Error) Is(err error) bool {
	e2, ok := err.(Error)
	if !ok {
		return false
	}
	return e.Code == e2.Code && e.Resp == e2.Resp && errors.Is(e.Err, e2.Err)
}

func (e Error) Error() string {
	return fmt.Sprintf("http %d (%v): %v", e.Code, e.Resp, e.Err)
}

// HandlerFunc is an http.HandlerFunc that reports failure by returning an error.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// AllowMethods rejects requests whose method is not listed with a 405.
func AllowMethods(next HandlerFunc, methods ...string) HandlerFunc {
	allow := strings.Join(methods, ", ")
	return func(w http.ResponseWriter, r *http.Request) error {
		for _, m := range methods {
			if r.Method == m {
				return next(w, r)
			}
		}
		w.Header().Set("Allow", allow)
		return Errorf(http.StatusMethodNotAllowed, nil, "%s %s: allowed methods are %s", r.Method, r.URL.Path, allow)
	}
}

// HandlerFuncAdapter serves a HandlerFunc. A returned Error is logged at the
// level of its code and answered with {"error": resp}. Any other error is a 500.
type HandlerFuncAdapter struct {
	Log  *cmdlog.Logger
	Func HandlerFunc
}

func (a HandlerFuncAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := a.Func(w, r)
	if err != nil {
		handleError(a.Log, w, err)
	}
}

func handleError(clog *cmdlog.Logger, w http.ResponseWriter, err error) {
	var herr Error
	if !errors.As(err, &herr) {
		herr = ErrorWrap(http.StatusInternalServerError, nil, err).(Error)
	}
	if herr.Code < 400 || herr.Code > 599 {
		clog.Error.Printf("handler returned non error status %d", herr.Code)
		herr.Code = http.StatusInternalServerError
		herr.Resp = http.StatusText(herr.Code)
	}

	statusLogger(clog, herr.Code).Printf("error handling http request: %v", err)

	if ww, ok := w.(writtenResponseWriter); ok && ww.Written() {
		// Headers already went out.
		return
	}
	JSON(clog, w, herr.Code, map[string]interface{}{
		"error": herr.Resp,
	})
}

type writtenResponseWriter interface {
	Written() bool
}

// JSON writes v as the response body. A nil v writes {"status": <status text>}.
func JSON(clog *cmdlog.Logger, w http.ResponseWriter, code int, v interface{}) {
	if v == nil {
		v = map[string]interface{}{
			"status": http.StatusText(code),
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		clog.Error.Printf("json marshal error: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

// Attachment writes b as a download named filename.
func Attachment(w http.ResponseWriter, filename, contentType string, b []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

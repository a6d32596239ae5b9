package web_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/gossipchain/foundation/web"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

type request struct {
	Name string `json:"name"`
}

func (r request) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func Test_App(t *testing.T) {
	t.Log("Given the need to route requests through middleware.")
	{
		var order []string
		mw := func(name string) web.Middleware {
			return func(handler web.Handler) web.Handler {
				return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
					order = append(order, name)
					return handler(ctx, w, r)
				}
			}
		}

		shutdown := make(chan os.Signal, 1)
		app := web.NewApp(shutdown, mw("app"))

		var traceID string
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			traceID = web.GetTraceID(ctx)

			var req request
			if err := web.Decode(r, &req); err != nil {
				return web.Respond(ctx, w, err.Error(), http.StatusBadRequest)
			}

			resp := struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			}{
				ID:   web.Param(r, "id"),
				Name: req.Name,
			}
			return web.Respond(ctx, w, resp, http.StatusOK)
		}
		app.Handle(http.MethodPost, "v1", "/echo/:id", h, mw("route"))

		fail := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return web.NewShutdownError("integrity issue")
		}
		app.Handle(http.MethodGet, "v1", "/fail", fail)

		t.Logf("\tTest 0:\tWhen posting a valid document.")
		{
			r := httptest.NewRequest(http.MethodPost, "/v1/echo/42", strings.NewReader(`{"name":"bill"}`))
			w := httptest.NewRecorder()
			app.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 0:\tShould receive a status code of 200, got %d.", failed, w.Code)
			}
			t.Logf("\t%s\tTest 0:\tShould receive a status code of 200.", success)

			if body := w.Body.String(); body != `{"id":"42","name":"bill"}` {
				t.Fatalf("\t%s\tTest 0:\tShould echo the param and the body, got %s.", failed, body)
			}
			t.Logf("\t%s\tTest 0:\tShould echo the param and the body.", success)

			if len(order) != 2 || order[0] != "app" || order[1] != "route" {
				t.Fatalf("\t%s\tTest 0:\tShould run app middleware before route middleware, got %v.", failed, order)
			}
			t.Logf("\t%s\tTest 0:\tShould run app middleware before route middleware.", success)

			if traceID == "" {
				t.Fatalf("\t%s\tTest 0:\tShould assign a trace id.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould assign a trace id.", success)
		}

		t.Logf("\tTest 1:\tWhen posting a document that fails validation.")
		{
			r := httptest.NewRequest(http.MethodPost, "/v1/echo/42", strings.NewReader(`{"name":""}`))
			w := httptest.NewRecorder()
			app.ServeHTTP(w, r)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest 1:\tShould receive a status code of 400, got %d.", failed, w.Code)
			}
			t.Logf("\t%s\tTest 1:\tShould receive a status code of 400.", success)
		}

		t.Logf("\tTest 2:\tWhen a handler reports an integrity issue.")
		{
			r := httptest.NewRequest(http.MethodGet, "/v1/fail", nil)
			w := httptest.NewRecorder()
			app.ServeHTTP(w, r)

			select {
			case <-shutdown:
				t.Logf("\t%s\tTest 2:\tShould signal a shutdown.", success)
			default:
				t.Fatalf("\t%s\tTest 2:\tShould signal a shutdown.", failed)
			}
		}
	}
}

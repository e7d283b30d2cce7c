package api_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/evalharvest/internal/adapters/http/api"
	"github.com/okian/evalharvest/pkg/logger"
	"github.com/okian/evalharvest/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

type mockStats struct{}

func (mockStats) GetStats() map[string]any {
	return map[string]any{"processed": 3, "running": true}
}

func routes() *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(mockStats{}, logger.Nop()).Register(mux)
	return mux
}

func TestRoutes(t *testing.T) {
	Convey("Given the ops routes", t, func() {
		mux := routes()

		Convey("When probing /healthz", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then it reports ok", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			})
		})

		Convey("When posting to /healthz", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))

			Convey("Then the method is refused", func() {
				So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})

		Convey("When reading /stats", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Convey("Then the provider's numbers are returned as JSON", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body["processed"], ShouldEqual, float64(3))
				So(body["running"], ShouldEqual, true)
			})
		})

		Convey("When fetching the API description", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

			Convey("Then every route is documented", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldEqual, "application/yaml; charset=utf-8")
				for _, route := range []string{"/healthz:", "/stats:", "/metrics:"} {
					So(rec.Body.String(), ShouldContainSubstring, route)
				}
			})
		})

		Convey("When scraping /metrics", func() {
			metrics.RecordItemSkipped("not_found")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Convey("Then harvester series are exposed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "evalharvest_pipeline_items_skipped_total")
				So(rec.Body.String(), ShouldContainSubstring, "evalharvest_pipeline_http_requests_total")
			})
		})
	})
}

func TestServeListener(t *testing.T) {
	Convey("Given a server on a loopback listener", t, func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- api.NewServer(mockStats{}, logger.Nop()).ServeListener(ctx, ln) }()

		Convey("When a client calls /healthz and the context ends", func() {
			resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
			So(err, ShouldBeNil)
			_ = resp.Body.Close()
			cancel()

			Convey("Then the request succeeds and the server stops cleanly", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				select {
				case err := <-done:
					So(err, ShouldBeNil)
				case <-time.After(5 * time.Second):
					So("server did not stop", ShouldBeEmpty)
				}
			})
		})
	})

	Convey("Given an address that cannot be bound", t, func() {
		err := api.NewServer(mockStats{}, logger.Nop()).Serve(context.Background(), "bad address")

		Convey("Then Serve fails with ErrServe", func() {
			So(err, ShouldNotBeNil)
			So(strings.Contains(err.Error(), "ops server failed"), ShouldBeTrue)
		})
	})
}

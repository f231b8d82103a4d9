// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/profiler"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/prajit96/ecommerce-platform/inflight"
	"github.com/prajit96/ecommerce-platform/session"
	"github.com/prajit96/ecommerce-platform/shopapi"
	"github.com/prajit96/ecommerce-platform/telemetry"
)

const (
	port              = "8080"
	defaultSessionTTL = 48 * time.Hour

	cookiePrefix  = "shop_"
	cookieSession = cookiePrefix + "session"

	breakerThreshold = 5
	breakerTimeout   = 30 * time.Second
)

var (
	baseUrl = ""
)

type frontendServer struct {
	shopAPIAddr string

	api      *shopapi.Client
	sessions *session.Manager
	inflight *inflight.Tracker
	log      logrus.FieldLogger
}

func main() {
	ctx := context.Background()
	log := logrus.New()
	log.Level = logrus.DebugLevel
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout

	svc := new(frontendServer)
	svc.log = log
	svc.inflight = &inflight.Tracker{}

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))

	baseUrl = os.Getenv("BASE_URL")

	if os.Getenv("ENABLE_TRACING") == "1" {
		log.Info("Tracing enabled.")
		initTracing(log, ctx)
	} else {
		log.Info("Tracing disabled.")
	}

	if os.Getenv("ENABLE_PROFILER") == "1" {
		log.Info("Profiling enabled.")
		go initProfiling(log, "storefront", "1.0.0")
	} else {
		log.Info("Profiling disabled.")
	}

	srvPort := port
	if os.Getenv("PORT") != "" {
		srvPort = os.Getenv("PORT")
	}
	addr := os.Getenv("LISTEN_ADDR")
	mustMapEnv(&svc.shopAPIAddr, "SHOP_API_ADDR")

	sessionTTL := defaultSessionTTL
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(fmt.Sprintf("environment variable SESSION_TTL: %v", err))
		}
		sessionTTL = d
	}

	var store session.Store
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		rs, err := session.NewRedisStore(redisAddr, sessionTTL)
		if err != nil {
			log.Fatal(err)
		}
		defer rs.Close()
		log.Infof("Keeping sessions in redis at %s", redisAddr)
		store = rs
	} else {
		log.Info("REDIS_ADDR not set, keeping sessions in memory")
		store = session.NewMemoryStore(sessionTTL)
	}
	svc.sessions = session.NewManager(store, cookieSession, sessionSecret(log), sessionTTL)

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	svc.api = shopapi.NewClient(svc.shopAPIAddr, httpClient,
		shopapi.NewBreaker(breakerThreshold, breakerTimeout, log.WithField("component", "shopapi")))
	log.Infof("Using shop API at %s", svc.shopAPIAddr)

	var handler http.Handler = svc.router()
	handler = otelhttp.NewHandler(handler, "storefront") // add OTel tracing

	log.Infof("starting server on %s:%s", addr, srvPort)
	log.Fatal(http.ListenAndServe(addr+":"+srvPort, handler))
}

// router builds the route table with the logging and session middleware.
func (fe *frontendServer) router() http.Handler {
	r := mux.NewRouter()
	r.Use(telemetry.Middleware)

	r.HandleFunc(baseUrl+"/", fe.homeHandler).Methods(http.MethodGet, http.MethodHead)

	r.HandleFunc(baseUrl+"/products", fe.requireSession(fe.productsHandler)).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/products", fe.requireSession(fe.createProductHandler)).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/products/new", fe.requireSession(fe.newProductHandler)).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/products/{id}/edit", fe.requireSession(fe.editProductHandler)).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/products/{id}", fe.requireSession(fe.updateProductHandler)).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/products/{id}/delete", fe.requireSession(fe.deleteProductHandler)).Methods(http.MethodPost)

	r.HandleFunc(baseUrl+"/courses", fe.requireSession(fe.coursesHandler)).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/courses", fe.requireSession(fe.createCourseHandler)).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/courses/new", fe.requireSession(fe.newCourseHandler)).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/courses/{id}/edit", fe.requireSession(fe.editCourseHandler)).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/courses/{id}", fe.requireSession(fe.updateCourseHandler)).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/courses/{id}/delete", fe.requireSession(fe.deleteCourseHandler)).Methods(http.MethodPost)

	r.HandleFunc(baseUrl+"/wishlist", fe.requireSession(fe.wishlistHandler)).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/wishlist/toggle", fe.requireSession(fe.wishlistToggleHandler)).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/wishlist/{id}/delete", fe.requireSession(fe.wishlistRemoveHandler)).Methods(http.MethodPost)

	r.HandleFunc(baseUrl+"/cart", fe.requireSession(fe.viewCartHandler)).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/cart", fe.requireSession(fe.addToCartHandler)).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/cart/{id}/increment", fe.requireSession(fe.incrementCartLineHandler)).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/cart/{id}/decrement", fe.requireSession(fe.decrementCartLineHandler)).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/cart/{id}/delete", fe.requireSession(fe.removeCartLineHandler)).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/api/cart/{id}/quantity", fe.setCartQuantityHandler).Methods(http.MethodPost)

	r.HandleFunc(baseUrl+"/checkout", fe.requireSession(fe.checkoutHandler)).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/checkout", fe.requireSession(fe.checkoutRedirectHandler)).Methods(http.MethodGet, http.MethodHead)

	r.HandleFunc(baseUrl+"/login", fe.loginPageHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/login", fe.loginSubmitHandler).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/signup", fe.signupPageHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/signup", fe.signupSubmitHandler).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/logout", fe.logoutHandler).Methods(http.MethodGet, http.MethodPost)

	r.PathPrefix(baseUrl + "/static/").Handler(http.StripPrefix(baseUrl+"/static/", http.FileServer(http.Dir("./static/"))))
	r.Handle(baseUrl+"/metrics", promhttp.Handler())
	r.HandleFunc(baseUrl+"/robots.txt", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "User-agent: *\nDisallow: /") })
	r.HandleFunc(baseUrl+"/_healthz", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "ok") })

	var handler http.Handler = r
	handler = &logHandler{log: fe.log, next: handler} // add logging
	handler = fe.loadSession(handler)                 // add session
	return handler
}

func initTracing(log logrus.FieldLogger, ctx context.Context) (*sdktrace.TracerProvider, error) {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)
	log.Info("Tracing provider initialized (no exporter configured)")
	return tp, nil
}

func initProfiling(log logrus.FieldLogger, service, version string) {
	for i := 1; i <= 3; i++ {
		log = log.WithField("retry", i)
		if err := profiler.Start(profiler.Config{
			Service:        service,
			ServiceVersion: version,
			// ProjectID must be set if not running on GCP.
			// ProjectID: "my-project",
		}); err != nil {
			log.Warnf("warn: failed to start profiler: %+v", err)
		} else {
			log.Info("started Stackdriver profiler")
			return
		}
		d := time.Second * 10 * time.Duration(i)
		log.Debugf("sleeping %v to retry initializing Stackdriver profiler", d)
		time.Sleep(d)
	}
	log.Warn("warning: could not initialize Stackdriver profiler after retrying, giving up")
}

// sessionSecret returns the cookie signing key. Without SESSION_SECRET a
// random key is used, so sessions do not survive a restart.
func sessionSecret(log logrus.FieldLogger) []byte {
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		return []byte(v)
	}
	log.Warn("SESSION_SECRET not set, generating a per-process key")
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("could not generate session key: %v", err))
	}
	return key
}

func mustMapEnv(target *string, envKey string) {
	v := os.Getenv(envKey)
	if v == "" {
		panic(fmt.Sprintf("environment variable %q not set", envKey))
	}
	*target = v
}

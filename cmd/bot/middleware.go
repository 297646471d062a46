package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/kestrelbot/kestrel/pkg/logging"
	"github.com/kestrelbot/kestrel/pkg/request"
	"github.com/kestrelbot/kestrel/pkg/sessions"
	"golang.org/x/time/rate"
)

// sessionCookieName is the cookie carrying the dashboard session id.
const sessionCookieName = "session_id"

// authOption is an option for the auth middleware. It indicates the type of
// authentication required.
type authOption int

const (
	// authOptionNone indicates that no authentication is required.
	authOptionNone authOption = iota

	// authOptionSession requires a valid, unexpired session.
	authOptionSession

	// authOptionAdmin requires a valid session with the admin grant.
	authOptionAdmin
)

// apiLimiter throttles the dashboard API across all clients.
var apiLimiter = rate.NewLimiter(rate.Limit(20), 40)

type Controller func(w http.ResponseWriter, r *http.Request)

func middlewareHttp(handler Controller, authRequired authOption, a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		cw := request.NewClientWriter(w)

		// Recover from any panics that occur in the handler.
		defer func() {
			if rec := recover(); rec != nil {
				a.Error("Panic in handler",
					slog.String(logging.KeyError, fmt.Sprintf("%v", rec)),
					slog.String("stack", string(debug.Stack())),
				)
				cw.WriteHeader(http.StatusInternalServerError)
				if err := json.NewEncoder(cw).Encode(request.NewMessage(request.ErrInternalServer.Error())); err != nil {
					a.Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
				}
			}
		}()

		var path string
		route := mux.CurrentRoute(r)
		if route != nil { // The route may be nil if the request is not routed.
			var err error
			path, err = route.GetPathTemplate()
			if err != nil {
				// An error here is only returned if the route does not define a path.
				a.Error("Error getting path template", slog.String(logging.KeyError, err.Error()))
				path = r.URL.Path // If the route does not define a path, use the URL path.
			}
		} else {
			path = r.URL.Path // If the route is nil, use the URL path.
		}

		defer func() {
			// Run the deferred function after the request has been handled, as the status code will not be available until then.
			HttpTotalRequests.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Inc()
			HttpRequestDuration.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Observe(time.Since(now).Seconds())
		}()

		if !apiLimiter.Allow() {
			cw.WriteHeader(http.StatusTooManyRequests)
			if err := json.NewEncoder(cw).Encode(request.NewMessage(request.ErrTooManyRequests.Error())); err != nil {
				a.Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
			}
			return
		}

		if authRequired != authOptionNone {
			session, ok := a.requestSession(r)
			if !ok || (authRequired == authOptionAdmin && !session.IsAdmin) {
				cw.WriteHeader(http.StatusUnauthorized)
				if err := json.NewEncoder(cw).Encode(request.NewMessage(request.ErrUnauthorized.Error())); err != nil {
					a.Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
				}
				return
			}
		}

		handler(cw, r)
	}
}

// requestSession resolves the session referenced by the request cookie.
func (a *App) requestSession(r *http.Request) (*sessions.Session, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, false
	}
	return a.sessions.Get(cookie.Value)
}

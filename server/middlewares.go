package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Daskott/safecall/colors"
)

type ResponseWriterWithStatus struct {
	http.ResponseWriter
	Status int
}

func (r *ResponseWriterWithStatus) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection
func (r *ResponseWriterWithStatus) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	r.Status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (app *App) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		responseWriter := &ResponseWriterWithStatus{
			ResponseWriter: w,
			Status:         200,
		}

		defer func() {
			responseStatus := colors.Green(responseWriter.Status)
			if responseWriter.Status >= 400 {
				responseStatus = colors.Red(responseWriter.Status)
			}

			app.logg.Info(
				r.Method, " ",
				r.URL.Path, " ",
				responseStatus, " ",
				colors.Yellow(fmt.Sprintf("[%v]", time.Since(start))))
		}()

		next.ServeHTTP(responseWriter, r)
	})
}

func (app *App) initialContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "application/json")

		// Add decoded token to request context
		ctx := context.WithValue(r.Context(), RequestContextKey("decodedJWT"), app.decodeAndVerifyToken(requestToken(r)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (app *App) protectedRouteMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodedJWT, ok := r.Context().Value(RequestContextKey("decodedJWT")).(DecodedJWT)
		if !ok {
			decodedJWT = DecodedJWT{ErrorMsg: "no token provided"}
		}

		if decodedJWT.ErrorMsg != "" {
			app.writeResponse(w, ResponsePayload{Errors: []string{decodedJWT.ErrorMsg}}, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// twilioWebhookMiddleware rejects requests that aren't signed by twilio
func (app *App) twilioWebhookMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			app.writeSmsWebHookResponse(w, nil, http.StatusBadRequest)
			return
		}

		if !app.twilio.ValidateRequest(r.URL.Path, r.PostForm, r.Header.Get("X-Twilio-Signature")) {
			app.logg.Warnf("rejected unsigned twilio webhook from %v", r.RemoteAddr)
			app.writeSmsWebHookResponse(w, nil, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

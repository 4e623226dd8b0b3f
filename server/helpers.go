package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/Daskott/safecall/server/auth"
	"github.com/Daskott/safecall/server/contacts"
	"github.com/Daskott/safecall/server/location"
	"github.com/go-playground/validator"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type ResponsePayload struct {
	Errors  []string    `json:"errors"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type RequestContextKey string

type DecodedJWT struct {
	Claims   *auth.DeviceTokenClaims
	ErrorMsg string
}

// BadRequestError is a request body the server couldn't read
type BadRequestError struct {
	Problems []string
}

func (e *BadRequestError) Error() string {
	return strings.Join(e.Problems, ", ")
}

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func (app *App) writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		app.logg.Error(payLoad.Errors)
	} else if statusCode >= http.StatusBadRequest {
		app.logg.Info(payLoad.Errors)
	}

	if payLoad.Errors == nil {
		payLoad.Errors = []string{}
	}
	payLoad.Success = statusCode < http.StatusBadRequest

	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

func (app *App) writeData(rw http.ResponseWriter, data interface{}, statusCode int) {
	app.writeResponse(rw, ResponsePayload{Data: data}, statusCode)
}

// writeError maps domain errors to their status code
func (app *App) writeError(rw http.ResponseWriter, err error) {
	var badRequestErr *BadRequestError
	var validationErr *contacts.ValidationError
	var notFoundErr *contacts.NotFoundError

	switch {
	case errors.As(err, &badRequestErr):
		app.writeResponse(rw, ResponsePayload{Errors: badRequestErr.Problems}, http.StatusBadRequest)
	case errors.As(err, &validationErr):
		app.writeResponse(rw, ResponsePayload{Errors: validationErr.Problems}, http.StatusBadRequest)
	case errors.As(err, &notFoundErr):
		app.writeResponse(rw, ResponsePayload{Errors: []string{notFoundErr.Error()}}, http.StatusNotFound)
	case errors.Is(err, location.ErrInvalidPosition):
		app.writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
	case isLocationFailure(err):
		app.writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusServiceUnavailable)
	default:
		app.writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
	}
}

func (app *App) writeSmsWebHookResponse(rw http.ResponseWriter, body []byte, status int) {
	rw.WriteHeader(status)
	rw.Write(body)
}

func isLocationFailure(err error) bool {
	return errors.Is(err, location.ErrUnsupported) ||
		errors.Is(err, location.ErrPermissionDenied) ||
		errors.Is(err, location.ErrUnavailable) ||
		errors.Is(err, location.ErrTimeout)
}

// decodeBody reads a json body into data, rejecting unknown fields
func decodeBody(r *http.Request, data interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(data); err != nil {
		return &BadRequestError{Problems: []string{fmt.Sprintf("invalid request body: %v", err)}}
	}
	return nil
}

// newValidator reports fields by the name clients & config files use
func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "mapstructure"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	return validate
}

func validationProblems(err error) []string {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	problems := []string{}
	for _, fieldErr := range validationErrs {
		field := strings.SplitN(fieldErr.Namespace(), ".", 2)
		name := field[len(field)-1]

		switch fieldErr.Tag() {
		case "required", "required_with", "required_without":
			problems = append(problems, fmt.Sprintf("%s is required", name))
		default:
			problems = append(problems, fmt.Sprintf("%s failed '%s' validation", name, fieldErr.Tag()))
		}
	}
	return problems
}

// ---------------------------------------------------------------------------------//
// Middleware Helper functions
// --------------------------------------------------------------------------------//

// requestToken reads the bearer token, browsers can't set headers on websocket
// requests so the 'token' query param is accepted too
func requestToken(r *http.Request) string {
	authHeaderList := strings.Split(r.Header.Get("Authorization"), "Bearer ")
	if len(authHeaderList) >= 2 {
		return strings.TrimSpace(authHeaderList[1])
	}
	return r.URL.Query().Get("token")
}

func (app *App) decodeAndVerifyToken(tokenString string) DecodedJWT {
	if tokenString == "" {
		return DecodedJWT{ErrorMsg: "no token provided"}
	}

	tokenClaims, err := auth.DecodeJWT(tokenString, app.keyPair)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	return DecodedJWT{Claims: tokenClaims}
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server, logg *zap.SugaredLogger) {
	logg.Infof("Safecall server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(app *App, server *http.Server) {
	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		app.logg.Errorf("Safecall server shutdown failed:%+s", err)
	}

	// Stop the countdown, signal hub & all jobs
	app.Stop()

	app.logg.Infof("Safecall server stopped properly")
}

func fatalOnError(logg *zap.SugaredLogger, err error) {
	if err != nil {
		logg.Fatal(err)
	}
}

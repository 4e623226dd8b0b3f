package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Daskott/safecall/server/alert"
	"github.com/Daskott/safecall/server/contacts"
	"github.com/Daskott/safecall/server/location"
	"github.com/Daskott/safecall/server/twilio"
	"github.com/Daskott/safecall/server/work"
	"github.com/gorilla/mux"
)

type alertResult struct {
	State   alert.State `json:"state"`
	Changed bool        `json:"changed"`
}

type contactRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

type locationReport struct {
	Latitude  *float64  `json:"latitude" validate:"required_without=Denied,omitempty,min=-90,max=90"`
	Longitude *float64  `json:"longitude" validate:"required_without=Denied,omitempty,min=-180,max=180"`
	Accuracy  float64   `json:"accuracy" validate:"min=0"`
	Timestamp time.Time `json:"timestamp"`
	Denied    bool      `json:"denied"`
}

type locationResult struct {
	Coordinates string `json:"coordinates"`
	Description string `json:"description"`
	MapsURL     string `json:"mapsUrl"`
}

type statsResult struct {
	Alert alert.State    `json:"alert"`
	Jobs  work.JobsStats `json:"jobs"`
}

var requestValidate = newValidator()

func (app *App) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(app.loggingMiddleware)

	router.HandleFunc("/jwks", app.getJWKS).Methods("GET")

	router.Handle(twilio.StatusCallbackPath, app.twilioWebhookMiddleware(http.HandlerFunc(app.smsStatusWebhook))).Methods("POST")

	protected := router.PathPrefix("/").Subrouter()
	protected.Use(app.initialContextMiddleware)
	protected.Use(app.protectedRouteMiddleware)

	protected.HandleFunc("/alert", app.getAlert).Methods("GET")
	protected.HandleFunc("/alert/arm", app.armAlert).Methods("POST")
	protected.HandleFunc("/alert/cancel", app.cancelAlert).Methods("POST")

	protected.HandleFunc("/contacts", app.listContacts).Methods("GET")
	protected.HandleFunc("/contacts", app.createContact).Methods("POST")
	protected.HandleFunc("/contacts/{id}", app.updateContact).Methods("PUT")
	protected.HandleFunc("/contacts/{id}", app.deleteContact).Methods("DELETE")
	protected.HandleFunc("/contacts/{id}/call", app.callContact).Methods("POST")

	protected.HandleFunc("/services/emergency", app.emergencyNumbers).Methods("GET")
	protected.HandleFunc("/services/support", app.supportNumbers).Methods("GET")
	protected.HandleFunc("/services/{kind}/{index:[0-9]+}/contact", app.contactService).Methods("POST")

	protected.HandleFunc("/location", app.getLocation).Methods("GET")
	protected.HandleFunc("/location", app.reportLocation).Methods("PUT")

	protected.HandleFunc("/signals", app.hub.ServeWs).Methods("GET")
	protected.HandleFunc("/stats", app.getStats).Methods("GET")

	return router
}

// ---------------------------------------------------------------------------------//
// Alert
// --------------------------------------------------------------------------------//

func (app *App) getAlert(rw http.ResponseWriter, r *http.Request) {
	app.writeData(rw, app.trigger.State(), http.StatusOK)
}

func (app *App) armAlert(rw http.ResponseWriter, r *http.Request) {
	state, armed := app.trigger.Arm()
	app.writeData(rw, alertResult{State: state, Changed: armed}, http.StatusOK)
}

func (app *App) cancelAlert(rw http.ResponseWriter, r *http.Request) {
	state, cancelled := app.trigger.Cancel()
	app.writeData(rw, alertResult{State: state, Changed: cancelled}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Contacts
// --------------------------------------------------------------------------------//

func (app *App) listContacts(rw http.ResponseWriter, r *http.Request) {
	app.writeData(rw, app.contacts.List(), http.StatusOK)
}

func (app *App) createContact(rw http.ResponseWriter, r *http.Request) {
	data := contactRequest{}
	if err := decodeBody(r, &data); err != nil {
		app.writeError(rw, err)
		return
	}

	contact, err := app.contacts.Add(data.Name, data.Phone, data.Relationship)
	if err != nil {
		app.writeError(rw, err)
		return
	}

	app.writeData(rw, contact, http.StatusCreated)
}

func (app *App) updateContact(rw http.ResponseWriter, r *http.Request) {
	fields := contacts.Fields{}
	if err := decodeBody(r, &fields); err != nil {
		app.writeError(rw, err)
		return
	}

	if fields.Name == nil && fields.Phone == nil && fields.Relationship == nil {
		app.writeResponse(rw, ResponsePayload{Errors: []string{"valid fields required"}}, http.StatusBadRequest)
		return
	}

	contact, err := app.contacts.Update(mux.Vars(r)["id"], fields)
	if err != nil {
		app.writeError(rw, err)
		return
	}

	app.writeData(rw, contact, http.StatusOK)
}

func (app *App) deleteContact(rw http.ResponseWriter, r *http.Request) {
	app.contacts.Remove(mux.Vars(r)["id"])
	app.writeResponse(rw, ResponsePayload{}, http.StatusOK)
}

func (app *App) callContact(rw http.ResponseWriter, r *http.Request) {
	intent, err := app.contacts.Call(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		app.writeError(rw, err)
		return
	}

	app.writeData(rw, intent, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Services
// --------------------------------------------------------------------------------//

func (app *App) emergencyNumbers(rw http.ResponseWriter, r *http.Request) {
	app.writeData(rw, app.services.EmergencyNumbers(), http.StatusOK)
}

func (app *App) supportNumbers(rw http.ResponseWriter, r *http.Request) {
	app.writeData(rw, app.services.SupportNumbers(), http.StatusOK)
}

func (app *App) contactService(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		app.writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}

	entry, err := app.services.Find(vars["kind"], index)
	if err != nil {
		app.writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}

	intent, err := app.services.Contact(r.Context(), entry)
	if err != nil {
		app.writeError(rw, err)
		return
	}

	app.writeData(rw, intent, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Location
// --------------------------------------------------------------------------------//

func (app *App) getLocation(rw http.ResponseWriter, r *http.Request) {
	coordinates, err := app.locator.Locate(r.Context())
	if err != nil {
		app.writeError(rw, err)
		return
	}

	app.writeData(rw, locationResult{
		Coordinates: coordinates,
		Description: location.Describe(coordinates),
		MapsURL:     location.MapsURL(coordinates),
	}, http.StatusOK)
}

func (app *App) reportLocation(rw http.ResponseWriter, r *http.Request) {
	report := locationReport{}
	if err := decodeBody(r, &report); err != nil {
		app.writeError(rw, err)
		return
	}

	if err := requestValidate.Struct(report); err != nil {
		app.writeResponse(rw, ResponsePayload{Errors: validationProblems(err)}, http.StatusBadRequest)
		return
	}

	if report.Denied {
		app.beacon.Deny()
		app.writeResponse(rw, ResponsePayload{}, http.StatusOK)
		return
	}

	err := app.beacon.Report(location.Position{
		Latitude:  *report.Latitude,
		Longitude: *report.Longitude,
		Accuracy:  report.Accuracy,
		Timestamp: report.Timestamp,
	})
	if err != nil {
		app.writeError(rw, err)
		return
	}

	app.writeResponse(rw, ResponsePayload{}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Ops
// --------------------------------------------------------------------------------//

func (app *App) getJWKS(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(app.jwks)
}

func (app *App) getStats(rw http.ResponseWriter, r *http.Request) {
	app.writeData(rw, statsResult{Alert: app.trigger.State(), Jobs: app.workerPool.Stats()}, http.StatusOK)
}

// smsStatusWebhook logs delivery updates for the alert sms
func (app *App) smsStatusWebhook(rw http.ResponseWriter, r *http.Request) {
	status := strings.ToLower(r.PostForm.Get("MessageStatus"))
	logf := app.logg.Infof
	if status == "failed" || status == "undelivered" {
		logf = app.logg.Warnf
	}
	logf("sms %v to %v is %v", r.PostForm.Get("MessageSid"), r.PostForm.Get("To"), status)

	app.writeSmsWebHookResponse(rw, nil, http.StatusOK)
}

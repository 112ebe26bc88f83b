// Package http serves the saldo web UI.
//
// This file implements the Builder Pattern for constructing HTMX responses:
// HX-Trigger events, notifications collected during the request and
// consistent error bodies.

package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"saldo/internal/notify"
)

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
type HTMXResponseBuilder struct {
	triggers      map[string]any
	notifications []map[string]any
	statusCode    int
	body          []byte
	headers       map[string]string
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerCollectionChanged tells listening partials to reload a collection.
func (b *HTMXResponseBuilder) TriggerCollectionChanged(collection string) *HTMXResponseBuilder {
	return b.Trigger(collection+":changed", struct{}{})
}

// TriggerFormReset adds the form:reset trigger.
func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger("form:reset", struct{}{})
}

// TriggerDashboardRefresh adds the dashboard:refresh trigger.
func (b *HTMXResponseBuilder) TriggerDashboardRefresh() *HTMXResponseBuilder {
	return b.Trigger("dashboard:refresh", struct{}{})
}

// Display durations in milliseconds.
const (
	successDuration = 3000
	errorDuration   = 5000
)

// TriggerNotification queues a show-notification event. Several
// notifications in one response are sent as a list.
func (b *HTMXResponseBuilder) TriggerNotification(kind notify.Kind, title, message string, durationMs int) *HTMXResponseBuilder {
	b.notifications = append(b.notifications, map[string]any{
		"type":     string(kind),
		"title":    title,
		"message":  message,
		"duration": durationMs,
	})
	return b
}

// TriggerSuccessNotification is a convenience method for success notifications.
func (b *HTMXResponseBuilder) TriggerSuccessNotification(title, message string) *HTMXResponseBuilder {
	return b.TriggerNotification(notify.KindSuccess, title, message, successDuration)
}

// TriggerErrorNotification is a convenience method for error notifications.
func (b *HTMXResponseBuilder) TriggerErrorNotification(title, message string) *HTMXResponseBuilder {
	return b.TriggerNotification(notify.KindError, title, message, errorDuration)
}

// Notifications forwards what the services reported during the request.
func (b *HTMXResponseBuilder) Notifications(ns []notify.Notification) *HTMXResponseBuilder {
	for _, n := range ns {
		d := successDuration
		if n.Kind == notify.KindError {
			d = errorDuration
		}
		b.TriggerNotification(n.Kind, n.Title, n.Message, d)
	}
	return b
}

// Header adds a custom header to the response.
func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the response body as bytes.
func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// HTML sets an already rendered HTML body.
func (b *HTMXResponseBuilder) HTML(content []byte) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = content
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	triggers := b.triggers
	switch len(b.notifications) {
	case 0:
	case 1:
		triggers["show-notification"] = b.notifications[0]
	default:
		triggers["show-notification"] = b.notifications
	}
	if len(triggers) > 0 {
		if triggerJSON, err := json.Marshal(triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates a standard error response with HTML formatting.
// The message is HTML-escaped for safety.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

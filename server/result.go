package server

import (
	"encoding/json"
	"net/http"

	"tracksvc/logger"
	"tracksvc/model"
)

// Result is what a route produces: a status code and a JSON body.
type Result struct {
	Status int
	Body   interface{}
}

// Response bodies. Routes differ in whether a 404 carries "message" or
// "error"; existing clients depend on those exact keys.
type (
	messageBody struct {
		Message string `json:"message"`
	}
	errorBody struct {
		Error string `json:"error"`
	}
	failureBody struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	tracksBody struct {
		Tracks []*model.Track `json:"tracks"`
	}
	trackBody struct {
		Track *model.Track `json:"track"`
	}
)

func ok(body interface{}) Result {
	return Result{Status: http.StatusOK, Body: body}
}

func notFoundMessage(msg string) Result {
	return Result{Status: http.StatusNotFound, Body: messageBody{Message: msg}}
}

func notFoundError(msg string) Result {
	return Result{Status: http.StatusNotFound, Body: errorBody{Error: msg}}
}

func failure(msg string, err error) Result {
	return Result{Status: http.StatusInternalServerError, Body: failureBody{Message: msg, Error: err.Error()}}
}

// resultHandler adapts a Result-returning route to http.Handler.
type resultHandler func(r *http.Request) Result

func (fn resultHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res := fn(r)
	writeJSON(w, res.Status, res.Body)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to write response", logger.ErrorField(err))
	}
}

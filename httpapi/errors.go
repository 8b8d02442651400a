package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrPortAlreadyInUse is returned by admin routes when a probe finds a port
// already bound outside the registry's control (portscan.InUse).
var ErrPortAlreadyInUse = errors.New("httpapi: port already in use")

// ErrTelemetry marks a telemetry-route failure reported as
// TELEMETRY_ERROR: a port in the request path that does not parse, or a
// probe that failed for a reason other than the port being in use.
var ErrTelemetry = errors.New("httpapi: telemetry failure")

type errorBody struct {
	Code string `json:"code"`
}

// writeError maps a collaborator error to the HTTP status/code pair spec'd
// for the admin error surface: PortAlreadyInUse -> 409 PORT_IN_USE,
// telemetry failure -> 500 TELEMETRY_ERROR, anything else -> 500
// INTERNAL_ERROR.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"

	switch {
	case errors.Is(err, ErrPortAlreadyInUse):
		status = http.StatusConflict
		code = "PORT_IN_USE"
	case errors.Is(err, ErrTelemetry):
		code = "TELEMETRY_ERROR"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Code: code})
}

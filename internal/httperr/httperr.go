// Package httperr defines the JSON error body shared by all failure responses.
package httperr

import (
	"encoding/json"
	"net/http"
	"time"
)

// Key is a machine-readable code identifying the failure. Clients localize
// on keys, never on messages.
type Key string

const (
	KeyTokenMissing        Key = "tokenMissing"
	KeyTokenMalformed      Key = "tokenMalformed"
	KeyTokenExpired        Key = "tokenExpired"
	KeyTokenRevoked        Key = "tokenRevoked"
	KeyInsufficientRole    Key = "insufficientRole"
	KeyNotOwner            Key = "notOwner"
	KeyNotFound            Key = "notFound"
	KeyNotInAggregate      Key = "notInAggregate"
	KeyReorderIncomplete   Key = "reorderIncomplete"
	KeyReorderOverdefined  Key = "reorderOverdefined"
	KeyReorderAmbiguous    Key = "reorderAmbiguous"
	KeyInvalidRole         Key = "invalidRole"
	KeyValidationFailed    Key = "validationFailed"
	KeyMethodNotAllowed    Key = "methodNotAllowed"
	KeyIdentityUnavailable Key = "identityUnavailable"
	KeyServerError         Key = "serverError"
)

// Body is the stable shape written on every failure path.
type Body struct {
	Message   string `json:"message"`
	Error     string `json:"error"`
	Status    int    `json:"status"`
	ErrorKey  Key    `json:"errorKey"`
	Timestamp string `json:"timestamp"`
}

// Write emits the error body with the given status.
func Write(w http.ResponseWriter, status int, key Key, message string) {
	body := Body{
		Message:   message,
		Error:     http.StatusText(status),
		Status:    status,
		ErrorKey:  key,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

package api

import (
	"errors"
	"net/http"

	"github.com/witness-org/witness-sub000/internal/domain"
	"github.com/witness-org/witness-sub000/internal/httperr"
)

// writeDomainError maps a service failure onto the response taxonomy.
// Ownership mismatches on existing aggregates surface as 400, true absence
// as 404; the asymmetry is part of the API contract.
func writeDomainError(w http.ResponseWriter, err error) {
	var reorderErr *domain.ReorderError
	switch {
	case errors.As(err, &reorderErr):
		httperr.Write(w, http.StatusBadRequest, reorderKey(reorderErr.Rule), reorderErr.Error())
	case errors.Is(err, domain.ErrWorkoutNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrExerciseNotFound),
		errors.Is(err, domain.ErrExerciseLogNotFound):
		httperr.Write(w, http.StatusNotFound, httperr.KeyNotFound, err.Error())
	case errors.Is(err, domain.ErrNotOwner):
		httperr.Write(w, http.StatusBadRequest, httperr.KeyNotOwner, err.Error())
	case errors.Is(err, domain.ErrNotInAggregate):
		httperr.Write(w, http.StatusBadRequest, httperr.KeyNotInAggregate, err.Error())
	case errors.Is(err, domain.ErrInsufficientRole):
		httperr.Write(w, http.StatusForbidden, httperr.KeyInsufficientRole, err.Error())
	case errors.Is(err, domain.ErrUserExists):
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, err.Error())
	default:
		httperr.Write(w, http.StatusInternalServerError, httperr.KeyServerError, err.Error())
	}
}

func reorderKey(rule domain.ReorderRule) httperr.Key {
	switch rule {
	case domain.ReorderIncomplete:
		return httperr.KeyReorderIncomplete
	case domain.ReorderOverdefined:
		return httperr.KeyReorderOverdefined
	default:
		return httperr.KeyReorderAmbiguous
	}
}

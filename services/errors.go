package services

import (
	"errors"
	"fmt"
)

// Error kinds shared by every service. Handlers map them to HTTP statuses.
var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrUserNotFound       = fmt.Errorf("%w: user", ErrNotFound)
	ErrTournamentNotFound = fmt.Errorf("%w: tournament", ErrNotFound)
	ErrEncounterNotFound  = fmt.Errorf("%w: encounter", ErrNotFound)

	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	ErrDuplicateEnrollment = errors.New("user already enrolled")
	ErrNotEnrolled         = errors.New("user not enrolled")

	ErrValidationFailed = errors.New("validation failed")
	ErrSamePassword     = fmt.Errorf("%w: new password equals current password", ErrValidationFailed)
	ErrInvalidPassword  = fmt.Errorf("%w: current password mismatch", ErrValidationFailed)
	ErrTournamentFull   = fmt.Errorf("%w: tournament is full", ErrValidationFailed)
	ErrUserMailConflict = fmt.Errorf("%w: mail already in use", ErrValidationFailed)

	ErrUnauthenticated    = errors.New("authentication failed")
	ErrInvalidCredentials = fmt.Errorf("%w: invalid mail or password", ErrUnauthenticated)
	ErrWrongPassword      = fmt.Errorf("%w: wrong password", ErrUnauthenticated)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrUnauthenticated)

	ErrUploadsDisabled = errors.New("file uploads are not configured")
)

// User-facing messages.
const (
	MsgUserNotFound          = "Utilisateur inexistant"
	MsgTournamentNotFound    = "Tournoi inexistant"
	MsgEncounterNotFound     = "Rencontre inexistante"
	MsgForbidden             = "Vous n'avez pas les droits nécessaires pour effectuer cette action"
	MsgInvalidCredentials    = "Mauvais couple email/mot de passe"
	MsgWrongPassword         = "Mauvais mot de passe"
	MsgInvalidPassword       = "Mot de passe invalide"
	MsgSamePassword          = "Votre nouveau mot de passe est identique au précédent"
	MsgTournamentFull        = "Le tournoi est complet"
	MsgMailConflict          = "Cet email est déjà utilisé"
	MsgInvalidToken          = "Token manquant ou invalide"
	msgTournamentEnrolled    = "L'utilisateur d'id %d est déjà inscrit au tournoi d'id %d"
	msgTournamentNotEnrolled = "L'utilisateur d'id %d n'est pas inscrit au tournoi d'id %d"
	msgEncounterEnrolled     = "L'utilisateur d'id %d est déjà inscrit à la rencontre d'id %d"
)

// DomainError carries the message shown to API clients. It unwraps to Kind so
// callers can keep using errors.Is with the sentinels above.
type DomainError struct {
	Kind    error
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Unwrap() error { return e.Kind }

func newDomainError(kind error, format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func duplicateTournamentEnrollment(userID, tournamentID int) error {
	return newDomainError(ErrDuplicateEnrollment, msgTournamentEnrolled, userID, tournamentID)
}

func notEnrolledInTournament(userID, tournamentID int) error {
	return newDomainError(ErrNotEnrolled, msgTournamentNotEnrolled, userID, tournamentID)
}

func duplicateEncounterEnrollment(userID, encounterID int) error {
	return newDomainError(ErrDuplicateEnrollment, msgEncounterEnrolled, userID, encounterID)
}

// ValidationError wraps a field validation failure so it maps to 400.
func ValidationError(err error) error {
	if err == nil {
		return nil
	}
	return &DomainError{Kind: ErrValidationFailed, Message: err.Error()}
}

// PublicMessage returns the message to expose for err, or "" when the error
// carries nothing a client should see.
func PublicMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	switch {
	case errors.Is(err, ErrUserNotFound):
		return MsgUserNotFound
	case errors.Is(err, ErrTournamentNotFound):
		return MsgTournamentNotFound
	case errors.Is(err, ErrEncounterNotFound):
		return MsgEncounterNotFound
	case errors.Is(err, ErrForbiddenOperation):
		return MsgForbidden
	case errors.Is(err, ErrInvalidCredentials):
		return MsgInvalidCredentials
	case errors.Is(err, ErrWrongPassword):
		return MsgWrongPassword
	case errors.Is(err, ErrInvalidPassword):
		return MsgInvalidPassword
	case errors.Is(err, ErrSamePassword):
		return MsgSamePassword
	case errors.Is(err, ErrTournamentFull):
		return MsgTournamentFull
	case errors.Is(err, ErrUserMailConflict):
		return MsgMailConflict
	case errors.Is(err, ErrInvalidToken):
		return MsgInvalidToken
	}
	return ""
}

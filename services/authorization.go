package services

import "github.com/Dosada05/mob-api/models"

// ensureOwner allows only the tournament's moderator.
func ensureOwner(t *models.Tournament, requesterID int) error {
	if t.UserID != requesterID {
		return ErrForbiddenOperation
	}
	return nil
}

// ensureSelf allows a user to act on their own account only.
func ensureSelf(targetID, requesterID int) error {
	if targetID != requesterID {
		return ErrForbiddenOperation
	}
	return nil
}

// ensureSelfOrOwner is the unenroll rule: the enrolled user or the moderator.
func ensureSelfOrOwner(t *models.Tournament, targetID, requesterID int) error {
	if targetID == requesterID || t.UserID == requesterID {
		return nil
	}
	return ErrForbiddenOperation
}

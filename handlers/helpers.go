package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/mob-api/middleware"
	"github.com/Dosada05/mob-api/services"
)

const (
	maxJSONBytes   = 1_048_576
	maxUploadBytes = 10 << 20

	msgInternalError = "Erreur interne du serveur"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("JSON mal formé (caractère %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("JSON mal formé")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("type JSON incorrect pour le champ %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("type JSON incorrect (caractère %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("le corps de la requête ne doit pas être vide")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("champ inconnu %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("le corps de la requête ne doit pas dépasser %d octets", maxBytesError.Limit)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("le corps de la requête ne doit contenir qu'une seule valeur JSON")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

// respond writes data as JSON. Write failures are only logged since the
// status line may already be out.
func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := writeJSON(w, status, data, nil); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write JSON response", slog.Any("error", err))
	}
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	if err := writeJSON(w, status, jsonResponse{"error": message}, nil); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "Internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	errorResponse(w, r, http.StatusInternalServerError, msgInternalError)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, r, http.StatusUnauthorized, services.MsgInvalidToken)
}

// mapServiceErrorToHTTP turns a service error into its status and French
// message. Unknown errors are logged and hidden behind a 500.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrForbiddenOperation):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrDuplicateEnrollment),
		errors.Is(err, services.ErrNotEnrolled),
		errors.Is(err, services.ErrValidationFailed):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrUploadsDisabled):
		errorResponse(w, r, http.StatusServiceUnavailable, "Le téléversement de fichiers n'est pas configuré")
		return
	default:
		serverErrorResponse(w, r, err)
		return
	}

	msg := services.PublicMessage(err)
	if msg == "" {
		serverErrorResponse(w, r, err)
		return
	}
	errorResponse(w, r, status, msg)
}

func getIDFromURL(r *http.Request, paramName string) (int, error) {
	idStr := chi.URLParam(r, paramName)
	if idStr == "" {
		return 0, fmt.Errorf("paramètre %s manquant", paramName)
	}

	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("identifiant invalide: %q", idStr)
	}
	return id, nil
}

// currentUserID reads the authenticated user or answers 401 itself.
func currentUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r)
		return 0, false
	}
	return id, true
}

// readImage pulls one image part out of a multipart request. The content type
// is sniffed from the bytes rather than trusted from the client.
func readImage(w http.ResponseWriter, r *http.Request, field string) (io.ReadSeeker, string, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", nil, fmt.Errorf("formulaire multipart invalide: %w", err)
	}

	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, "", nil, fmt.Errorf("fichier %q manquant", field)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		file.Close()
		return nil, "", nil, fmt.Errorf("lecture du fichier %q impossible: %w", field, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, "", nil, fmt.Errorf("lecture du fichier %q impossible: %w", field, err)
	}

	return file, http.DetectContentType(head[:n]), func() { file.Close() }, nil
}

type idRow struct {
	UserID int `json:"user_id"`
}

func userIDRows(ids []int) []idRow {
	rows := make([]idRow, len(ids))
	for i, id := range ids {
		rows[i] = idRow{UserID: id}
	}
	return rows
}

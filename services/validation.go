package services

import (
	"errors"
	"regexp"
	"time"

	"github.com/dlclark/regexp2"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/Dosada05/mob-api/models"
)

var (
	nameExp = regexp.MustCompile(`^[\p{L} ,.'-]+$`)
	mailExp = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9.-]+$`)

	// RE2 has no lookahead, so the password policy goes through regexp2.
	passwordExp = regexp2.MustCompile(`^(?=.*[a-z])(?=.*[A-Z])(?=.*\d)(?=.*[@$!%*?&])[A-Za-z\d@$!%*?&]{8,}$`, regexp2.None)
)

const passwordRuleMessage = "doit contenir au moins 8 caractères dont une minuscule, une majuscule, un chiffre et un caractère spécial"

var errPasswordPolicy = errors.New(passwordRuleMessage)

func strongPassword(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	default:
		return errors.New("doit être une chaîne de caractères")
	}
	if s == "" {
		return nil
	}
	ok, err := passwordExp.MatchString(s)
	if err != nil || !ok {
		return errPasswordPolicy
	}
	return nil
}

func nameRules() []validation.Rule {
	return []validation.Rule{validation.Match(nameExp).Error("contient des caractères invalides")}
}

func nicknameRules() []validation.Rule {
	return []validation.Rule{is.Alphanumeric, validation.Length(3, 30)}
}

type RegisterInput struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Nickname  string `json:"nickname"`
	Mail      string `json:"mail"`
	Password  string `json:"password"`
}

func (in *RegisterInput) Validate() error {
	return ValidationError(validation.ValidateStruct(in,
		validation.Field(&in.FirstName, append([]validation.Rule{validation.Required}, nameRules()...)...),
		validation.Field(&in.LastName, append([]validation.Rule{validation.Required}, nameRules()...)...),
		validation.Field(&in.Nickname, append([]validation.Rule{validation.Required}, nicknameRules()...)...),
		validation.Field(&in.Mail, validation.Required, validation.Match(mailExp).Error("adresse email invalide")),
		validation.Field(&in.Password, validation.Required, validation.By(strongPassword)),
	))
}

type LoginInput struct {
	Mail     string `json:"mail"`
	Password string `json:"password"`
}

func (in *LoginInput) Validate() error {
	return ValidationError(validation.ValidateStruct(in,
		validation.Field(&in.Mail, validation.Required),
		validation.Field(&in.Password, validation.Required),
	))
}

// UpdateProfileInput only touches the fields that are present.
type UpdateProfileInput struct {
	FirstName *string `json:"firstname"`
	LastName  *string `json:"lastname"`
	Nickname  *string `json:"nickname"`
	Avatar    *string `json:"avatar"`
}

func (in *UpdateProfileInput) Validate() error {
	return ValidationError(validation.ValidateStruct(in,
		validation.Field(&in.FirstName, append([]validation.Rule{validation.NilOrNotEmpty}, nameRules()...)...),
		validation.Field(&in.LastName, append([]validation.Rule{validation.NilOrNotEmpty}, nameRules()...)...),
		validation.Field(&in.Nickname, append([]validation.Rule{validation.NilOrNotEmpty}, nicknameRules()...)...),
		validation.Field(&in.Avatar, is.URL),
	))
}

type ChangePasswordInput struct {
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

func (in *ChangePasswordInput) Validate() error {
	return ValidationError(validation.ValidateStruct(in,
		validation.Field(&in.Password, validation.Required),
		validation.Field(&in.NewPassword, validation.Required, validation.By(strongPassword)),
	))
}

type DeleteAccountInput struct {
	Password string `json:"password"`
}

func (in *DeleteAccountInput) Validate() error {
	return ValidationError(validation.ValidateStruct(in,
		validation.Field(&in.Password, validation.Required),
	))
}

type CreateTournamentInput struct {
	Label          string                  `json:"label"`
	Type           models.TournamentType   `json:"type"`
	Date           time.Time               `json:"date"`
	Game           string                  `json:"game"`
	Format         models.TournamentFormat `json:"format"`
	MaxPlayerCount int                     `json:"max_player_count"`
	Description    string                  `json:"description"`
	Image          *string                 `json:"image"`
}

func (in *CreateTournamentInput) Validate() error {
	return ValidationError(validation.ValidateStruct(in,
		validation.Field(&in.Label, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Type, validation.Required, validation.In(models.TournamentPublic, models.TournamentPrivate)),
		validation.Field(&in.Date, validation.Required),
		validation.Field(&in.Game, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Format, validation.Required, validation.In(models.FormatSingleElimination, models.FormatDoubleElimination)),
		validation.Field(&in.MaxPlayerCount, validation.Min(0)),
		validation.Field(&in.Image, is.URL),
	))
}

// UpdateTournamentInput keeps the stored value for every absent field.
type UpdateTournamentInput struct {
	Label          *string                  `json:"label"`
	Type           *models.TournamentType   `json:"type"`
	Date           *time.Time               `json:"date"`
	Game           *string                  `json:"game"`
	Format         *models.TournamentFormat `json:"format"`
	MaxPlayerCount *int                     `json:"max_player_count"`
	Description    *string                  `json:"description"`
	Image          *string                  `json:"image"`
}

func (in *UpdateTournamentInput) Validate() error {
	return ValidationError(validation.ValidateStruct(in,
		validation.Field(&in.Label, validation.NilOrNotEmpty, validation.Length(1, 100)),
		validation.Field(&in.Type, validation.In(models.TournamentPublic, models.TournamentPrivate)),
		validation.Field(&in.Game, validation.NilOrNotEmpty, validation.Length(1, 100)),
		validation.Field(&in.Format, validation.In(models.FormatSingleElimination, models.FormatDoubleElimination)),
		validation.Field(&in.MaxPlayerCount, validation.Min(0)),
		validation.Field(&in.Image, is.URL),
	))
}

func (in *UpdateTournamentInput) apply(t *models.Tournament) {
	if in.Label != nil {
		t.Label = *in.Label
	}
	if in.Type != nil {
		t.Type = *in.Type
	}
	if in.Date != nil {
		t.Date = *in.Date
	}
	if in.Game != nil {
		t.Game = *in.Game
	}
	if in.Format != nil {
		t.Format = *in.Format
	}
	if in.MaxPlayerCount != nil {
		t.MaxPlayerCount = *in.MaxPlayerCount
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Image != nil {
		t.Image = in.Image
	}
}

type CreateEncounterInput struct {
	TournamentID int        `json:"tournament_id"`
	Date         *time.Time `json:"date"`
}

func (in *CreateEncounterInput) Validate() error {
	return ValidationError(validation.ValidateStruct(in,
		validation.Field(&in.TournamentID, validation.Required, validation.Min(1)),
	))
}

// UpdateEncounterInput overwrites the result fields that are present. No
// consistency check is made between winner, loser and scores.
type UpdateEncounterInput struct {
	Winner      *string    `json:"winner"`
	Loser       *string    `json:"loser"`
	Date        *time.Time `json:"date"`
	WinnerScore *int       `json:"winner_score"`
	LoserScore  *int       `json:"loser_score"`
}

func (in *UpdateEncounterInput) apply(e *models.Encounter) {
	if in.Winner != nil {
		e.Winner = in.Winner
	}
	if in.Loser != nil {
		e.Loser = in.Loser
	}
	if in.Date != nil {
		e.Date = *in.Date
	}
	if in.WinnerScore != nil {
		e.WinnerScore = *in.WinnerScore
	}
	if in.LoserScore != nil {
		e.LoserScore = *in.LoserScore
	}
}

// EnrollInput names the user to enroll. Zero means the requester.
type EnrollInput struct {
	UserID int `json:"user_id"`
}

func (in *EnrollInput) Validate() error {
	return ValidationError(validation.ValidateStruct(in,
		validation.Field(&in.UserID, validation.Min(0)),
	))
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrongPassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"Secr3t!pass", true},
		{"Abcdef1$", true},
		{"Ab1$", false},
		{"alllower1!", false},
		{"ALLUPPER1!", false},
		{"NoDigits!!", false},
		{"NoSpecial11", false},
		{"Sp ace1!aa", false},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := strongPassword(tt.password)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, errPasswordPolicy)
			}
		})
	}
}

func TestStrongPassword_SkipsEmptyAndNil(t *testing.T) {
	var missing *string
	assert.NoError(t, strongPassword(""))
	assert.NoError(t, strongPassword(missing))
	assert.Error(t, strongPassword(12))
}

func TestRegisterInput_Validate(t *testing.T) {
	valid := RegisterInput{
		FirstName: "Jean-Luc",
		LastName:  "O'Neil",
		Nickname:  "jluc42",
		Mail:      "jl@example.fr",
		Password:  "Secr3t!pass",
	}
	assert.NoError(t, valid.Validate())

	badMail := valid
	badMail.Mail = "jl@example"
	err := badMail.Validate()
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, PublicMessage(err), "mail")

	badName := valid
	badName.FirstName = "R2D2"
	assert.ErrorIs(t, badName.Validate(), ErrValidationFailed)

	missing := RegisterInput{}
	assert.ErrorIs(t, missing.Validate(), ErrValidationFailed)
}

func TestUpdateProfileInput_ValidateAllowsAbsentFields(t *testing.T) {
	assert.NoError(t, (&UpdateProfileInput{}).Validate())

	empty := ""
	assert.ErrorIs(t, (&UpdateProfileInput{FirstName: &empty}).Validate(), ErrValidationFailed)

	notURL := "not a url"
	assert.ErrorIs(t, (&UpdateProfileInput{Avatar: &notURL}).Validate(), ErrValidationFailed)
}

func TestEnrollInput_Validate(t *testing.T) {
	assert.NoError(t, (&EnrollInput{}).Validate())
	assert.NoError(t, (&EnrollInput{UserID: 3}).Validate())
	assert.ErrorIs(t, (&EnrollInput{UserID: -1}).Validate(), ErrValidationFailed)
}

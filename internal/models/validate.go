package models

import "github.com/go-playground/validator/v10"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the user's required fields and role.
func (u User) Validate() error {
	return validate.Struct(u)
}

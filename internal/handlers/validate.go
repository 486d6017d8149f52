package handlers

import (
	"fmt"
	"regexp"
)

// emailPattern allows dot- or hyphen-separated word runs in the local
// part and domain, with a 2-3 character TLD.
var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

func validateEmail(email string) error {
	if email == "" {
		return validationError("missing required email field")
	}
	if !emailPattern.MatchString(email) {
		return validationError("email must be a valid email address")
	}
	return nil
}

func validateCredentials(email string, password string, minPasswordLength int) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return validationError("missing required password field")
	}
	if len(password) < minPasswordLength {
		return validationError(fmt.Sprintf("password should have a minimum length of %d", minPasswordLength))
	}
	return nil
}

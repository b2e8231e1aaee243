package authcore

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	namePattern  = regexp.MustCompile(`^[\p{L}][\p{L} .'-]+$`)
)

// normalizeEmail is applied to every inbound email before lookups and
// storage so that case and padding differences never split an identity.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return email != "" && len(email) <= 254 && emailPattern.MatchString(email)
}

// validName accepts human names of at least two letters; spaces, dots,
// apostrophes, and hyphens are allowed after the first letter.
func validName(name string) bool {
	return len(name) >= 2 && len(name) <= 100 && namePattern.MatchString(name)
}

func codeDigitsOnly(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (e *Engine) validateRegister(req RegisterRequest) *InputError {
	fields := map[string]string{}

	if !validEmail(normalizeEmail(req.Email)) {
		fields["email"] = "must be a valid email address"
	}
	if !validName(strings.TrimSpace(req.FirstName)) {
		fields["firstName"] = "must be at least 2 letters"
	}
	if !validName(strings.TrimSpace(req.LastName)) {
		fields["lastName"] = "must be at least 2 letters"
	}
	if min := e.config.Password.MinLength; len(req.Password) < min {
		fields["password"] = fmt.Sprintf("must be at least %d characters", min)
	}
	if req.Password != req.ConfirmPassword {
		fields["confirmPassword"] = "does not match password"
	}

	if len(fields) == 0 {
		return nil
	}
	return &InputError{Fields: fields}
}

func (e *Engine) validateResetPassword(req ResetPasswordRequest) *InputError {
	fields := map[string]string{}

	if !validEmail(normalizeEmail(req.Email)) {
		fields["email"] = "must be a valid email address"
	}
	if !codeDigitsOnly(req.Code) {
		fields["code"] = "must be numeric"
	}
	if min := e.config.Password.MinLength; len(req.NewPassword) < min {
		fields["newPassword"] = fmt.Sprintf("must be at least %d characters", min)
	}
	if req.NewPassword != req.ConfirmPassword {
		fields["confirmPassword"] = "does not match new password"
	}

	if len(fields) == 0 {
		return nil
	}
	return &InputError{Fields: fields}
}

// Package validation holds input rules shared by services and seeders.
package validation

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxUsernameLength = 150
	MaxEmailLength    = 254
	MaxBioLength      = 255
	MaxImageLength    = 500
)

var usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// ValidateUsername accepts letters, digits and @ . + - _ up to 150 characters.
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New("This field may not be blank.")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return errors.New("Ensure this field has no more than 150 characters.")
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	return nil
}

// ValidateEmail checks for a single bare address with a dotted domain.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("This field may not be blank.")
	}
	if len(email) > MaxEmailLength {
		return errors.New("Ensure this field has no more than 254 characters.")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return errors.New("Enter a valid email address.")
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return errors.New("Enter a valid email address.")
	}
	return nil
}

// ValidatePassword enforces length only; strength is left to the client.
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("This field may not be blank.")
	}
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return errors.New("This password is too short. It must contain at least 8 characters.")
	}
	if n > MaxPasswordLength {
		return errors.New("Ensure this field has no more than 128 characters.")
	}
	return nil
}

// ValidateBio limits the profile bio to 255 characters.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return errors.New("Ensure this field has no more than 255 characters.")
	}
	return nil
}

// ValidateImage accepts an empty value or an absolute http(s) URL.
func ValidateImage(image string) error {
	if image == "" {
		return nil
	}
	if len(image) > MaxImageLength {
		return errors.New("Ensure this field has no more than 500 characters.")
	}
	if !strings.HasPrefix(image, "http://") && !strings.HasPrefix(image, "https://") {
		return errors.New("Enter a valid URL.")
	}
	return nil
}

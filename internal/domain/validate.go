package domain

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// MaxBodyLength is the maximum message length in characters.
	MaxBodyLength = 500
	// MaxUsernameLength is the maximum username length in characters.
	MaxUsernameLength = 80

	// MaxFrameSize bounds one inbound WebSocket frame in bytes. A character
	// outside the BMP costs 12 bytes as an escaped surrogate pair
	// (\ud83d\ude00), so the largest valid send_private_message must fit
	// with room left for the envelope.
	MaxFrameSize = 16 * 1024

	maxEscapedRuneBytes = 12
	frameEnvelopeBytes  = 1024
)

var validate = validator.New()

// ValidateBody checks that body is non-blank and at most MaxBodyLength characters.
func ValidateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: body is empty", ErrInvalidBody)
	}
	if err := validate.Var(body, fmt.Sprintf("max=%d", MaxBodyLength)); err != nil {
		return fmt.Errorf("%w: body exceeds %d characters", ErrInvalidBody, MaxBodyLength)
	}
	return nil
}

// NormalizeUsername trims surrounding whitespace and validates the result.
func NormalizeUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := validate.Var(name, fmt.Sprintf("required,max=%d", MaxUsernameLength)); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidUsername, name)
	}
	return name, nil
}

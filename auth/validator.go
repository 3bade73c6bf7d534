package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"pair-chat/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateSendContent, SendRequest{})
	return v
}

type RegisterRequest struct {
	FullName string `validate:"required,max=100"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=12,max=72"`
}

type LoginRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// SendRequest holds the parts of a send that are checked before any lookup.
// Body or Attachments must carry something; a blank body counts as empty.
type SendRequest struct {
	SenderID    string `validate:"required"`
	Body        string
	Attachments []AttachmentSpec `validate:"dive"`
}

type AttachmentSpec struct {
	Name string `validate:"required,max=255"`
	Size int64  `validate:"gte=0"`
}

// SendLimits are the configured bounds of a send, zero meaning unbounded.
type SendLimits struct {
	MaxBodyLength  int
	MaxAttachments int
}

// ValidateRegister checks the fields then the password complexity.
func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if !isPasswordComplex(req.Password) {
		return fmt.Errorf("%w: %w", errors.ErrValidation, errors.ErrInvalidPassword)
	}
	return nil
}

func ValidateLogin(req LoginRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return nil
}

func isPasswordComplex(s string) bool {
	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}

// ValidateSend checks the fields, then the configured limits. The body limit
// counts characters, not bytes.
func ValidateSend(req SendRequest, limits SendLimits) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if limits.MaxBodyLength > 0 {
		if err := validate.Var(req.Body, fmt.Sprintf("max=%d", limits.MaxBodyLength)); err != nil {
			return fmt.Errorf("%w: body longer than %d characters", errors.ErrValidation, limits.MaxBodyLength)
		}
	}
	if limits.MaxAttachments > 0 {
		if err := validate.Var(req.Attachments, fmt.Sprintf("max=%d", limits.MaxAttachments)); err != nil {
			return fmt.Errorf("%w: more than %d attachments", errors.ErrValidation, limits.MaxAttachments)
		}
	}
	return nil
}

func validateSendContent(sl validator.StructLevel) {
	req := sl.Current().Interface().(SendRequest)
	if strings.TrimSpace(req.Body) == "" && len(req.Attachments) == 0 {
		sl.ReportError(req.Body, "Body", "Body", "required_without", "Attachments")
	}
}

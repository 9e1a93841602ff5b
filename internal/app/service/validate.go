package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest wraps field errors in common.ErrValidation with a readable
// list of the offending fields.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%v: %w", err, common.ErrValidation)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), common.ErrValidation)
}

// vl2rule/pkg/logging/errors.go

package logging

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

type ErrorType string

const (
	ErrorTypeDecode  ErrorType = "DECODE"
	ErrorTypeEncode  ErrorType = "ENCODE"
	ErrorTypeConvert ErrorType = "CONVERT"
	ErrorTypeConfig  ErrorType = "CONFIG"
	ErrorTypeIO      ErrorType = "IO"
)

type RuleError struct {
	Type    ErrorType
	Message string
	Err     error
	Fields  map[string]interface{}
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

func NewError(errType ErrorType, message string, err error, fields map[string]interface{}) *RuleError {
	return &RuleError{
		Type:    errType,
		Message: message,
		Err:     err,
		Fields:  fields,
	}
}

// IsType reports whether err wraps a RuleError of the given type.
func IsType(err error, errType ErrorType) bool {
	var ruleErr *RuleError
	return errors.As(err, &ruleErr) && ruleErr.Type == errType
}

func LogError(logger zerolog.Logger, err error) {
	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) {
		logger.Error().Err(err).Msg(err.Error())
		return
	}

	event := logger.Error().Err(ruleErr.Err).
		Str("error_type", string(ruleErr.Type)).
		Str("message", ruleErr.Message)

	for k, v := range ruleErr.Fields {
		event = event.Interface(k, v)
	}

	event.Msg(ruleErr.Message)
}

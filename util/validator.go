package util

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/bwise1/querydesk/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	validate    *validator.Validate
	rgxUsername = regexp.MustCompile(`^[\w.@+-]+$`)
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(fieldName)
	validate.RegisterValidation("querytype", validateQueryType)
	validate.RegisterValidation("username", validateUsername)
}

// fieldName reports fields by their form name so messages line up with the
// inputs that produced them.
func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"schema", "json"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return fld.Name
}

func validateQueryType(fl validator.FieldLevel) bool {
	return model.IsQueryType(fl.Field().String())
}

func validateUsername(fl validator.FieldLevel) bool {
	return rgxUsername.MatchString(fl.Field().String())
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// FieldErrors converts a validation failure into one message per form field.
// It returns nil when err is not a validation failure.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	messages := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := messages[fe.Field()]; seen {
			continue
		}
		messages[fe.Field()] = fieldMessage(fe)
	}
	return messages
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "The two password fields didn't match."
	case "querytype":
		return fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", fe.Value())
	case "username":
		return "Enter a valid username. It may contain only letters, numbers, and @/./+/-/_ characters."
	default:
		return "Enter a valid value."
	}
}

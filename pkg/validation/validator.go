package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// UserStatuses are the values the userstatus tag accepts, in any case.
var UserStatuses = []string{"PENDING", "ACTIVE", "INACTIVE", "SUSPENDED", "DELETED"}

// Init configures the validator behind gin's binding: errors are keyed by
// json/form tag names and the user tags below are registered.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		register(v)
	}
}

func register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("userstatus", func(fl validator.FieldLevel) bool {
		s := strings.ToUpper(strings.TrimSpace(fl.Field().String()))
		for _, st := range UserStatuses {
			if s == st {
				return true
			}
		}
		return false
	})
	v.RegisterAlias("pwd", "min=6,max=100")
	v.RegisterAlias("username", "notblank,min=2,max=100")
}

// ToDetails converts binding errors into field -> message for the error
// envelope. Anything that is not a validation error maps to "payload".
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = message(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

func message(fe validator.FieldError) string {
	param := fe.Param()
	unit := " characters long"
	if fe.Kind() != reflect.String {
		unit = ""
	}

	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "cannot be blank"
	case "email":
		return "must be a valid email"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "pwd":
		return "must be between 6 and 100 characters long"
	case "username":
		return "must be between 2 and 100 characters long"
	case "userstatus":
		return "must be one of: " + strings.Join(UserStatuses, ", ")
	case "min":
		return "must be at least " + param + unit
	case "max":
		return "must be at most " + param + unit
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	}
	if param != "" {
		return fmt.Sprintf("failed on %s=%s", fe.Tag(), param)
	}
	return "failed on " + fe.Tag()
}

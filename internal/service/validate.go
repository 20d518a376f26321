package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lvonguyen/cyberguard/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	enums := map[string]func(string) bool{
		"domain":          model.ValidDomain,
		"indicator_type":  func(s string) bool { return model.IndicatorType(s).Valid() },
		"risk_level":      func(s string) bool { return model.RiskLevel(s).Valid() },
		"domain_category": func(s string) bool { return model.DomainCategory(s).Valid() },
		"severity":        func(s string) bool { return model.Severity(s).Valid() },
		"alert_category":  func(s string) bool { return model.AlertCategory(s).Valid() },
		"alert_status":    func(s string) bool { return model.AlertStatus(s).Valid() },
	}
	for tag, fn := range enums {
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		})
	}
	return v
}

// Validate checks s against its validate tags and returns
// model.ValidationErrors describing every failed field.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	out := make(model.ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, &model.ValidationError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "domain":
		return "please provide a valid domain name"
	case "ipv4":
		return "please provide a valid IPv4 address"
	default:
		return fmt.Sprintf("invalid %s", fe.Field())
	}
}

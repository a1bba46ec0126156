package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func v() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("env"), ",")
			if name == "" {
				return f.Name
			}
			return name
		})
		validate.RegisterValidation("semverconstraint", semverConstraintValidator)
		validate.RegisterStructValidation(autobrrCredentialsValidator, AutobrrConfig{})
	})
	return validate
}

func semverConstraintValidator(fl validator.FieldLevel) bool {
	_, err := semver.NewConstraint(fl.Field().String())
	return err == nil
}

func autobrrCredentialsValidator(sl validator.StructLevel) {
	a := sl.Current().Interface().(AutobrrConfig)
	if a.APIKey != "" || (a.Username != "" && a.Password != "") {
		return
	}
	sl.ReportError(a.APIKey, "AUTOBRR_API_KEY", "APIKey", "credentials", "")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "credentials":
		return "AUTOBRR_API_KEY or both AUTOBRR_USERNAME and AUTOBRR_PASSWORD must be set"
	case "http_url":
		return fmt.Sprintf("%s must be an http or https URL", fe.Field())
	case "len":
		return fmt.Sprintf("%s must be %s characters long", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "semverconstraint":
		return fmt.Sprintf("%s is not a valid version constraint", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be positive", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// ValidateConfig checks if all required configuration values are present and valid
func ValidateConfig(c *ConfigParam) error {
	if c == nil {
		return ErrConfiguration.New("configuration is not loaded")
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	err := v().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrConfiguration.Err(err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return ErrConfiguration.MsgErr("invalid configuration: "+strings.Join(msgs, "; "), err)
}

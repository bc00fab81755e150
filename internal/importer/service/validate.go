package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/importer/domain"
	"github.com/go-playground/validator/v10"
)

const (
	notBlankTag = "notblank"
	classTag    = "class"
)

var fieldMessages = map[string]string{
	string(domain.FieldName):           "Student name is required",
	string(domain.FieldClassLabel):     "Class is invalid",
	string(domain.FieldEnrollmentYear): "Enrollment year is invalid",
	string(domain.FieldParentPhone):    "Parent phone is required",
	string(domain.FieldParentEmail):    "Parent email is invalid",
}

func newValidator(settings *config.FeeSettingsHolder) *validator.Validate {
	v := validator.New()

	// Report json names so messages line up with the column fields.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation(classTag, func(fl validator.FieldLevel) bool {
		return settings.Get().IsValidClass(fl.Field().String())
	})
	return v
}

func rowErrors(v *validator.Validate, row domain.Row) []string {
	err := v.Struct(row)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = fe.Field() + " is invalid"
		}
		messages = append(messages, msg)
	}
	return messages
}

package validator

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrorResponse merangkum satu field yang gagal validasi: nama field,
// tag yang gagal, dan parameter tag-nya.
type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

var validate = validator.New()

func init() {
	// uuid_required menolak uuid.Nil. Tag `required` bawaan menganggap
	// zero-value UUID tetap "terisi", jadi butuh tag sendiri.
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		return false
	})
}

// ValidateStruct menjalankan validasi tag pada struct request.
// Hasil kosong berarti lolos.
func ValidateStruct(data interface{}) []*ErrorResponse {
	var failures []*ErrorResponse
	if err := validate.Struct(data); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			failures = append(failures, &ErrorResponse{
				FailedField: fieldErr.StructNamespace(),
				Tag:         fieldErr.Tag(),
				Value:       fieldErr.Param(),
			})
		}
	}
	return failures
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Email     string `json:"email" validate:"required,email"`
	ModuloNum int    `json:"moduloNum" validate:"min=0"`
}

func TestValidateStruct(t *testing.T) {
	assert.Nil(t, ValidateStruct(sample{Email: "a@x.com"}))

	errs := ValidateStruct(sample{Email: "nope", ModuloNum: -1})
	assert.Equal(t, map[string]string{
		"email":     "must be a valid email address",
		"moduloNum": "must be at least 0",
	}, errs)

	errs = ValidateStruct(sample{})
	assert.Equal(t, "this field is required", errs["email"])
}

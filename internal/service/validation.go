package service

import (
	"fmt"
	"sync"

	"petcare_settlement/internal/helper"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags used by the request types:
//
//	money: a non-negative decimal string with at most two fractional digits.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		err = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
			_, perr := helper.ParseMoney(fl.Field().String())
			return perr == nil
		})
	})
	return err
}

// bindErrorMessage flattens validator errors into one line for the client.
func bindErrorMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "invalid request body"
	}
	msg := "invalid fields:"
	for _, fe := range verrs {
		msg += fmt.Sprintf(" %s(%s)", fe.Field(), fe.Tag())
	}
	return msg
}

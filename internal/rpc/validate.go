package rpc

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateParams runs struct-tag validation over a decoded request struct,
// returning a single readable error naming every failing field. This is
// the InvalidParams boundary check: it runs before a handler ever touches
// the store or an external tool.
func ValidateParams(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		msg := "invalid parameters:"
		for _, fe := range verrs {
			msg += fmt.Sprintf(" %s failed '%s';", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}

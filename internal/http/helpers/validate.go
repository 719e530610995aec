package helpers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/dropDatabas3/socialconnect/internal/http/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// los mensajes usan el nombre json del campo
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate corre las reglas `validate:"..."` del DTO. Si falla escribe 400
// con el detalle por campo y devuelve false.
func Validate(w http.ResponseWriter, v any) bool {
	err := validatorInstance().Struct(v)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		errors.WriteError(w, errors.ErrBadRequest.WithCause(err))
		return false
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	errors.WriteError(w, errors.ErrValidation.WithDetail(strings.Join(parts, "; ")))
	return false
}

package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/Suhaibinator/SDispatch/pkg/codec"
	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/go-playground/validator/v10"
)

// VerifiedBodyField is the field under which VerifyBody stores the decoded body.
const VerifiedBodyField = "verifiedBody"

// NewValidator returns a validator that reports fields by their json names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// VerifyBody returns a middleware that decodes the request body into a T with
// c and validates it against its `validate` struct tags. The decoded value is
// contributed under VerifiedBodyField. Decode and validation failures are
// returned as 400 HTTPErrors naming the offending fields.
// A nil codec means JSON; a nil validator means NewValidator().
func VerifyBody[T any](c codec.Codec, v *validator.Validate) common.Middleware {
	if c == nil {
		c = codec.NewJSONCodec()
	}
	if v == nil {
		v = NewValidator()
	}

	return func(_ http.ResponseWriter, r *http.Request, _ common.Fields) (common.Fields, error) {
		var body T
		if err := c.Decode(r, &body); err != nil {
			return nil, common.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}

		if err := v.Struct(body); err != nil {
			var errs validator.ValidationErrors
			if errors.As(err, &errs) {
				return nil, common.NewHTTPError(http.StatusBadRequest, describeValidation(errs))
			}
			// Non-struct T cannot be validated by tags; accept it as decoded.
			var invalid *validator.InvalidValidationError
			if !errors.As(err, &invalid) {
				return nil, err
			}
		}

		return common.Fields{VerifiedBodyField: body}, nil
	}
}

// VerifiedBodyFrom reads the body contributed by VerifyBody.
func VerifiedBodyFrom[T any](fields common.Fields) (T, bool) {
	return common.Get[T](fields, VerifiedBodyField)
}

func describeValidation(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		parts = append(parts, fe.Field()+" failed on "+fe.Tag())
	}
	return "invalid request body: " + strings.Join(parts, ", ")
}

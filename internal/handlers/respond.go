package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/pharmacy-checkout/internal/checkout"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

var kindStatus = map[checkout.ErrorKind]int{
	checkout.KindAuthRequired:         fiber.StatusUnauthorized,
	checkout.KindEmptyCart:            fiber.StatusUnprocessableEntity,
	checkout.KindNoAddress:            fiber.StatusUnprocessableEntity,
	checkout.KindEmptySelection:       fiber.StatusUnprocessableEntity,
	checkout.KindValidationFailed:     fiber.StatusBadRequest,
	checkout.KindUpstreamUnavailable:  fiber.StatusBadGateway,
	checkout.KindSubmissionInProgress: fiber.StatusConflict,
}

// LoginPath is where clients send users who must authenticate.
const LoginPath = "/login"

// ErrorHandler renders every handler error as the JSON failure envelope.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *fiber.Ctx, err error) error {
		var ce *checkout.Error
		if errors.As(err, &ce) {
			status, ok := kindStatus[ce.Kind]
			if !ok {
				status = fiber.StatusInternalServerError
			}
			message := ce.Message
			if message == "" {
				message = checkout.DefaultMessage(ce.Kind)
			}

			body := fiber.Map{
				"success": false,
				"error":   fiber.Map{"kind": ce.Kind, "message": message},
			}
			if ce.Kind == checkout.KindAuthRequired {
				body["redirect"] = LoginPath
			}
			if status >= fiber.StatusInternalServerError {
				log.Warn("request failed", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(status).JSON(body)
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"success": false,
				"error":   fiber.Map{"message": fe.Message},
			})
		}

		log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   fiber.Map{"message": "internal server error"},
		})
	}
}

func respondOK(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

func respondCreated(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": data})
}

func invalid(message string) error {
	return &checkout.Error{Kind: checkout.KindValidationFailed, Message: message}
}

// parseBody decodes and validates a JSON body.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return invalid("invalid request body")
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalid(err.Error())
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return invalid(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", fe.Field(), fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain only digits", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

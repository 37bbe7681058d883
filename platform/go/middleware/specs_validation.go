package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	platformauth "github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
)

// SessionSecurityScheme is the OpenAPI security scheme name for the session cookie.
const SessionSecurityScheme = "sessionCookie"

// ValidateAuthenticationViaSwagger satisfies operations that declare the session cookie scheme.
// It only checks that the cookie is present; the guard middleware decides who may pass.
func ValidateAuthenticationViaSwagger(ctx context.Context, input *openapi3filter.AuthenticationInput) error {
	if input == nil || input.SecuritySchemeName != SessionSecurityScheme {
		return nil
	}
	r := input.RequestValidationInput.Request
	if r == nil {
		return fmt.Errorf("no request in validation input")
	}
	name := platformauth.DefaultSessionCookie
	if input.SecurityScheme != nil && input.SecurityScheme.Name != "" {
		name = input.SecurityScheme.Name
	}
	if c, err := r.Cookie(name); err != nil || c.Value == "" {
		return fmt.Errorf("missing session cookie")
	}
	return nil
}

// SpecValidator validates requests against spec and renders failures as problem+json.
// Requests to paths the document does not declare are rejected with 404.
func SpecValidator(spec *openapi3.T) func(http.Handler) http.Handler {
	// Match on path only; deployments differ in host and scheme.
	spec.Servers = nil
	return oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: ValidateAuthenticationViaSwagger,
		},
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			switch statusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				problems.Write(w, problems.Unauthorized())
			case http.StatusNotFound:
				problems.Write(w, problems.NotFound("route not found"))
			default:
				p := problems.BadRequest(message)
				p.Status = statusCode
				problems.Write(w, p)
			}
		},
	})
}

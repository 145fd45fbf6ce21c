// Package validator provides a rule-based data validation system with both
// programmatic and struct tag-based validation capabilities.
//
// The package is built around a Rule type that encapsulates validation logic
// and error reporting, allowing for flexible and composable validation patterns.
//
// # Core Concepts
//
// Rules are created by validation functions that return a Rule struct containing
// both the validation check and error details. The package has no function
// that applies a list of rules; callers run each Check and collect failures:
//
//	import "github.com/relaykit/messaging/core/validator"
//
//	rules := []validator.Rule{
//		validator.MinLenString("username", user.Username, 3),
//		validator.ValidEmail("email", user.Email),
//	}
//
//	var errs validator.ValidationErrors
//	for _, r := range rules {
//		if !r.Check() {
//			errs.Add(r.Error)
//		}
//	}
//	for _, verr := range errs {
//		fmt.Printf("Field: %s, Message: %s\n", verr.Field, verr.Message)
//	}
//
// # String Validation
//
// String validation functions for common requirements:
//
//	rules := []validator.Rule{
//		validator.MinLenString("name", user.Name, 2),
//		validator.MaxLenString("name", user.Name, 50),
//		validator.ValidEmail("email", user.Email),
//		validator.ValidURL("website", user.Website),
//		validator.ValidPhone("phone", user.Phone),
//		validator.ValidAlphanumeric("username", user.Username),
//		validator.ValidAlpha("first_name", user.FirstName),
//		validator.ValidNumericString("zip", user.Zip),
//	}
//
// Required, numeric range, collection length, date and sign checks have no
// Rule constructor; they are available only as struct tags (see Struct Tag
// Validation).
//
// # Choice Validation
//
// Validate values against allowed/forbidden lists:
//
//	validStatuses := []string{"active", "inactive", "pending"}
//	rules := []validator.Rule{
//		validator.InList("status", user.Status, validStatuses),
//	}
//
//	forbiddenUsernames := []string{"admin", "root", "system"}
//	rules = append(rules,
//		validator.NotInList("username", user.Username, forbiddenUsernames),
//	)
//
// # UUID Validation
//
// UUID string validation, optionally pinned to a version:
//
//	rules := []validator.Rule{
//		validator.ValidUUID("id", user.ID),
//		validator.ValidUUIDVersionString("session_id", session.ID, 4),
//	}
//
// # Pattern Validation
//
// Regular expression matching:
//
//	rules := []validator.Rule{
//		validator.MatchesRegex("sku", product.SKU, `^[A-Z]{2}\d{4}$`, "product SKU"),
//	}
//
// # Struct Tag Validation
//
// The package supports struct tag-based validation:
//
//	type User struct {
//		Username string `validate:"required;min:3;max:20;alphanum"`
//		Email    string `validate:"required;email"`
//		Age      int    `validate:"min:18;max:120"`
//		Status   string `validate:"in:active,inactive,pending"`
//	}
//
//	user := User{
//		Username: "john_doe",
//		Email:    "john@example.com",
//		Age:      25,
//		Status:   "active",
//	}
//
//	if err := validator.ValidateStruct(&user); err != nil {
//		// Handle validation errors
//		validationErrs := validator.ExtractValidationErrors(err)
//		for _, verr := range validationErrs {
//			fmt.Printf("%s: %s\n", verr.Field, verr.Message)
//		}
//	}
//
// # Custom Validators
//
// Register custom validation functions for struct tags:
//
//	validator.RegisterValidator("business_email", func(field string, value reflect.Value, params []string) validator.Rule {
//		email := value.String()
//		return validator.Rule{
//			Check: func() bool {
//				// Custom business email validation logic
//				return strings.HasSuffix(email, "@company.com")
//			},
//			Error: validator.ValidationError{
//				Field:   field,
//				Message: "must be a company email address",
//			},
//		}
//	})
//
// # Error Handling
//
// ValidationErrors provides methods for working with validation results:
//
//	if err := validator.ValidateStruct(&user); err != nil {
//		// nil unless err is a ValidationErrors
//		validationErrs := validator.ExtractValidationErrors(err)
//
//		// Check for specific field errors
//		if validationErrs.Has("Email") {
//			emailErrors := validationErrs.GetErrors("Email")
//			fmt.Println("Email errors:", emailErrors)
//		}
//	}
//
// # Translation Support
//
// ValidationError includes translation keys and values for internationalization:
//
//	for _, verr := range validationErrs {
//		// Use translation key and values with your i18n system
//		translatedMsg := translator.Translate(verr.TranslationKey, verr.TranslationValues)
//		fmt.Printf("%s: %s\n", verr.Field, translatedMsg)
//	}
package validator

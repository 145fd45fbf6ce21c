package validator

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"slices"
)

// Rule pairs a check with the error to report when it fails.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// ValidationError describes a single field's validation failure, carrying
// both a human-readable Message and a TranslationKey/TranslationValues pair
// for i18n-aware callers.
type ValidationError struct {
	Field             string
	Message           string
	TranslationKey    string
	TranslationValues map[string]any
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failed Rule from a ValidateStruct call.
type ValidationErrors []ValidationError

func (errs *ValidationErrors) Add(e ValidationError) {
	*errs = append(*errs, e)
}

func (errs ValidationErrors) IsEmpty() bool {
	return len(errs) == 0
}

// Has reports whether field appears among the collected errors.
func (errs ValidationErrors) Has(field string) bool {
	return slices.ContainsFunc(errs, func(e ValidationError) bool { return e.Field == field })
}

// GetErrors returns the errors collected for field, in the order they were added.
func (errs ValidationErrors) GetErrors(field string) []ValidationError {
	var out []ValidationError
	for _, e := range errs {
		if e.Field == field {
			out = append(out, e)
		}
	}
	return out
}

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return msg
}

// ExtractValidationErrors unwraps err into a ValidationErrors, returning nil
// if err did not originate from ValidateStruct.
func ExtractValidationErrors(err error) ValidationErrors {
	if verrs, ok := err.(ValidationErrors); ok {
		return verrs
	}
	return nil
}

var (
	uuidPattern    = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	uuidVersionFmt = `^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-%d[0-9a-fA-F]{3}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`
	alphanumPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	alphaPattern    = regexp.MustCompile(`^[a-zA-Z]+$`)
	numericPattern  = regexp.MustCompile(`^[0-9]+$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9][0-9\s().-]{6,}$`)
)

func MinLenString(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return len(value) >= min },
		Error: ValidationError{
			Field: field, Message: fmt.Sprintf("must be at least %d characters long", min),
			TranslationKey: "validation.min", TranslationValues: map[string]any{"field": field, "min": min},
		},
	}
}

func MaxLenString(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return len(value) <= max },
		Error: ValidationError{
			Field: field, Message: fmt.Sprintf("must be at most %d characters long", max),
			TranslationKey: "validation.max", TranslationValues: map[string]any{"field": field, "max": max},
		},
	}
}

func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			_, err := mail.ParseAddress(value)
			return err == nil
		},
		Error: ValidationError{
			Field: field, Message: "must be a valid email address",
			TranslationKey: "validation.email", TranslationValues: map[string]any{"field": field},
		},
	}
}

func ValidURL(field, value string) Rule {
	return Rule{
		Check: func() bool {
			u, err := url.ParseRequestURI(value)
			return err == nil && u.Scheme != "" && u.Host != ""
		},
		Error: ValidationError{
			Field: field, Message: "must be a valid URL",
			TranslationKey: "validation.url", TranslationValues: map[string]any{"field": field},
		},
	}
}

func ValidPhone(field, value string) Rule {
	return Rule{
		Check: func() bool { return phonePattern.MatchString(value) },
		Error: ValidationError{Field: field, Message: "must be a valid phone number", TranslationKey: "validation.phone", TranslationValues: map[string]any{"field": field}},
	}
}

func ValidAlphanumeric(field, value string) Rule {
	return Rule{
		Check: func() bool { return alphanumPattern.MatchString(value) },
		Error: ValidationError{Field: field, Message: "must contain only letters and numbers", TranslationKey: "validation.alphanum", TranslationValues: map[string]any{"field": field}},
	}
}

func ValidAlpha(field, value string) Rule {
	return Rule{
		Check: func() bool { return alphaPattern.MatchString(value) },
		Error: ValidationError{Field: field, Message: "must contain only letters", TranslationKey: "validation.alpha", TranslationValues: map[string]any{"field": field}},
	}
}

func ValidNumericString(field, value string) Rule {
	return Rule{
		Check: func() bool { return numericPattern.MatchString(value) },
		Error: ValidationError{Field: field, Message: "must contain only digits", TranslationKey: "validation.numeric", TranslationValues: map[string]any{"field": field}},
	}
}

func ValidUUID(field, value string) Rule {
	return Rule{
		Check: func() bool { return uuidPattern.MatchString(value) },
		Error: ValidationError{Field: field, Message: "must be a valid UUID", TranslationKey: "validation.uuid", TranslationValues: map[string]any{"field": field}},
	}
}

func ValidUUIDVersionString(field, value string, version int) Rule {
	pattern := regexp.MustCompile(fmt.Sprintf(uuidVersionFmt, version))
	return Rule{
		Check: func() bool { return pattern.MatchString(value) },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be a valid UUID version %d", version), TranslationKey: "validation.uuid", TranslationValues: map[string]any{"field": field, "version": version}},
	}
}

func InList(field, value string, allowed []string) Rule {
	return Rule{
		Check: func() bool { return slices.Contains(allowed, value) },
		Error: ValidationError{Field: field, Message: "must be one of the allowed values", TranslationKey: "validation.in", TranslationValues: map[string]any{"field": field, "allowed": allowed}},
	}
}

func NotInList(field, value string, forbidden []string) Rule {
	return Rule{
		Check: func() bool { return !slices.Contains(forbidden, value) },
		Error: ValidationError{Field: field, Message: "must not be one of the forbidden values", TranslationKey: "validation.not_in", TranslationValues: map[string]any{"field": field, "forbidden": forbidden}},
	}
}

func MatchesRegex(field, value, pattern, description string) Rule {
	re, err := regexp.Compile(pattern)
	return Rule{
		Check: func() bool { return err == nil && re.MatchString(value) },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must match %s", description), TranslationKey: "validation.regex", TranslationValues: map[string]any{"field": field}},
	}
}

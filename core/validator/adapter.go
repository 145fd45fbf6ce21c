package validator

import (
	"context"
	"reflect"

	"github.com/relaykit/messaging/core/message"
)

// StructValidator adapts ValidateStruct to the pipeline.Validator contract,
// running struct tag validation against a message's Payload. Non-struct
// payloads pass through unvalidated.
type StructValidator struct{}

func (StructValidator) Validate(_ context.Context, msg message.Message) (bool, []string) {
	rv := reflect.ValueOf(msg.Payload)
	if rv.Kind() != reflect.Struct {
		return true, nil
	}

	// ValidateStruct needs an addressable copy since Payload is carried by
	// value through the pipeline.
	ptr := reflect.New(rv.Type())
	ptr.Elem().Set(rv)

	err := ValidateStruct(ptr.Interface())
	if err == nil {
		return true, nil
	}

	verrs := ExtractValidationErrors(err)
	msgs := make([]string, len(verrs))
	for i, e := range verrs {
		msgs[i] = e.Error()
	}
	return false, msgs
}

package domain

import "errors"

// ErrEmptyFieldName indicates a schema definition with a blank field name.
var ErrEmptyFieldName = errors.New("empty field name")

// ErrNilField indicates a schema definition without a field variant.
var ErrNilField = errors.New("nil field definition")

// ErrDuplicateField indicates two schema definitions sharing a name.
var ErrDuplicateField = errors.New("duplicate field name")

// ErrUnknownReference indicates a dependsOn or coherentWith name that does
// not exist in the schema.
var ErrUnknownReference = errors.New("unknown field reference")

// ErrInvalidRange indicates a number field whose min is not below its max.
var ErrInvalidRange = errors.New("number field min must be less than max")

// ErrEmptyEnum indicates an enum field with no options.
var ErrEmptyEnum = errors.New("enum field requires at least one option")

// ErrMissingCompute indicates a derived field without a compute function.
var ErrMissingCompute = errors.New("derived field requires a compute function")

// ErrEmptyPrompt indicates a generated field without a prompt.
var ErrEmptyPrompt = errors.New("generated field requires a prompt")

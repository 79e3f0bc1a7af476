package domain

// CodeOrigin tells whether a short code was generated by the service or chosen
// by the user.
type CodeOrigin string

const (
	CodeOriginSystem CodeOrigin = "system"
	CodeOriginCustom CodeOrigin = "custom"
)

// Code is the tagged form of a resolvable short code. Records persist the two
// origins in separate nullable columns, but everything above the storage layer
// passes codes around in this form.
type Code struct {
	Value  string
	Origin CodeOrigin
}

// SystemCode tags a generated code.
func SystemCode(value string) Code {
	return Code{Value: value, Origin: CodeOriginSystem}
}

// CustomCode tags a user-chosen slug.
func CustomCode(value string) Code {
	return Code{Value: value, Origin: CodeOriginCustom}
}

package dispatch

import (
	"errors"
	"fmt"
)

// The command surface's failure vocabulary. Handlers match these with
// errors.Is to pick transport status codes; messages carry the detail.
var (
	ErrUnknownObject     = errors.New("unknown object")
	ErrObjectDeleted     = errors.New("model deleted")
	ErrObjectClosed      = errors.New("recognizer closed")
	ErrWrongArity        = errors.New("wrong # args")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnsupported       = errors.New("unsupported operation")
	ErrUnknownSubcommand = errors.New("unknown subcommand")
)

func wrongArity(usage string) error {
	return fmt.Errorf("%w: should be %q", ErrWrongArity, usage)
}

func unknownSubcommand(sub string) error {
	// The offending word is echoed verbatim.
	return fmt.Errorf("%w \"%s\"", ErrUnknownSubcommand, sub)
}

package devtools

// Script is an in-page function plus its JSON arguments. Fn is fixed source
// text ("(a, b) => ..."); caller data only travels through Args, so adapters
// never build JavaScript by concatenation.
type Script struct {
	Name string // stable identifier, used in logs and by test fakes
	Fn   string
	Args []any
}

// With returns a copy of s bound to args.
func (s Script) With(args ...any) Script {
	s.Args = args
	return s
}

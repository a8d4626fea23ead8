package llm

type invalidOutputError struct {
	err error
}

func (e *invalidOutputError) Error() string {
	return "invalid model output: " + e.err.Error()
}

func (e *invalidOutputError) Unwrap() error {
	return e.err
}

package main

// exitError carries a specific process exit code through cobra's error
// return. An empty message exits with the code alone.
type exitError struct {
	code    int
	message string
}

func (e exitError) Error() string {
	return e.message
}

func exitWithCode(code int, message string) error {
	return exitError{code: code, message: message}
}

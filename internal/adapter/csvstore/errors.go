package csvstore

import "fmt"

// FileError reports a file that could not be opened or decoded at all. It is
// fatal to the run that reads it.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

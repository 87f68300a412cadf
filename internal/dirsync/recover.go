package dirsync

import "fmt"

// withRecover runs fn and converts a panic into an error.
func withRecover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

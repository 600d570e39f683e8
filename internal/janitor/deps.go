package janitor

import "os"

// remover abstracts file removal for testing.
type remover interface {
	Remove(path string) error
}

// osRemover is the production implementation of remover.
type osRemover struct{}

func (osRemover) Remove(path string) error { return os.RemoveAll(path) }

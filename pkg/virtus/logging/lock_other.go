//go:build !unix

package logging

import "os"

// Advisory locking is unavailable; writes are serialized by the writer mutex only.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) {}

// Command gsg compiles, checks and previews shader graph documents.
package main

import (
	"os"
	"runtime"
)

func init() {
	// The view command drives GLFW which must run on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// Package onnxrt performs process-wide ONNX Runtime shared-library
// initialization shared by every adapter that talks to onnxruntime
// directly.
package onnxrt

import (
	"fmt"
	"log"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	mu          sync.Mutex
	initialized bool
)

var searchPaths = []string{
	"../Resources/libonnxruntime.dylib",
	"./libonnxruntime.dylib",
	"./libonnxruntime.so",
	"/usr/local/lib/libonnxruntime.so",
}

// Ensure initializes the ONNX Runtime environment at most once per
// process, honoring ONNXRUNTIME_SHARED_LIBRARY_PATH when set.
func Ensure() error {
	mu.Lock()
	defer mu.Unlock()

	if initialized {
		return nil
	}

	libPath := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")
	if libPath == "" {
		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				libPath = path
				break
			}
		}
	}

	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	} else {
		log.Println("onnxrt: no ONNX Runtime shared library found on search paths, relying on system default")
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnxrt: initialize environment: %w", err)
	}

	initialized = true
	return nil
}

package onnx

import (
	"fmt"
	"sync"

	onnxruntime "github.com/yalue/onnxruntime_go"
)

var initMu sync.Mutex

// InitRuntime locates the shared library and initializes the ONNX Runtime
// environment once per process.
func InitRuntime(useGPU bool) error {
	initMu.Lock()
	defer initMu.Unlock()

	if onnxruntime.IsInitialized() {
		return nil
	}
	if err := SetONNXLibraryPath(useGPU); err != nil {
		return fmt.Errorf("failed to set ONNX Runtime library path: %w", err)
	}
	if err := onnxruntime.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}
	return nil
}

// RuntimeInfo describes a successful runtime check.
type RuntimeInfo struct {
	LibraryPath string
	Version     string
}

// CheckRuntime verifies that the ONNX Runtime library can be found and
// initialized.
func CheckRuntime(useGPU bool) (RuntimeInfo, error) {
	libPath, err := FindLibrary(useGPU)
	if err != nil {
		return RuntimeInfo{}, fmt.Errorf("failed to find ONNX Runtime library: %w", err)
	}
	if err := InitRuntime(useGPU); err != nil {
		return RuntimeInfo{LibraryPath: libPath}, err
	}
	return RuntimeInfo{
		LibraryPath: libPath,
		Version:     onnxruntime.GetVersion(),
	}, nil
}

package onnx

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGPUConfig(t *testing.T) {
	config := DefaultGPUConfig()
	assert.False(t, config.UseGPU)
	assert.Equal(t, 0, config.DeviceID)
	assert.Equal(t, uint64(0), config.GPUMemLimit)
	assert.Equal(t, "kNextPowerOfTwo", config.ArenaExtendStrategy)
	assert.Equal(t, "DEFAULT", config.CUDNNConvAlgoSearch)
	assert.True(t, config.DoCopyInDefaultStream)
}

func TestCUDASettings(t *testing.T) {
	cfg := DefaultGPUConfig()
	cfg.DeviceID = 1
	cfg.GPUMemLimit = 2048

	settings := cfg.CUDASettings()
	assert.Equal(t, "1", settings["device_id"])
	assert.Equal(t, "2048", settings["gpu_mem_limit"])
	assert.Equal(t, "kNextPowerOfTwo", settings["arena_extend_strategy"])
	assert.Equal(t, "1", settings["do_copy_in_default_stream"])

	cfg.GPUMemLimit = 0
	cfg.DoCopyInDefaultStream = false
	settings = cfg.CUDASettings()
	_, ok := settings["gpu_mem_limit"]
	assert.False(t, ok)
	assert.Equal(t, "0", settings["do_copy_in_default_stream"])
}

func TestValidateGPUConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  GPUConfig
		wantErr bool
	}{
		{"cpu only skips checks", GPUConfig{UseGPU: false, DeviceID: -1}, false},
		{"valid", GPUConfig{UseGPU: true, ArenaExtendStrategy: "kSameAsRequested", CUDNNConvAlgoSearch: "HEURISTIC"}, false},
		{"negative device", GPUConfig{UseGPU: true, DeviceID: -1}, true},
		{"bad strategy", GPUConfig{UseGPU: true, ArenaExtendStrategy: "bogus"}, true},
		{"bad algo", GPUConfig{UseGPU: true, CUDNNConvAlgoSearch: "FAST"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGPUConfig(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetSystemLibraryPaths(t *testing.T) {
	gpu := getSystemLibraryPaths(true)
	cpu := getSystemLibraryPaths(false)
	assert.Contains(t, gpu[0], "gpu")
	assert.NotContains(t, cpu[0], "gpu")
	assert.Greater(t, len(gpu), len(cpu))
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := findProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestGetLibraryName(t *testing.T) {
	name, err := getLibraryName("linux")
	require.NoError(t, err)
	assert.Equal(t, libLinux, name)

	name, err = getLibraryName("darwin")
	require.NoError(t, err)
	assert.Equal(t, libDarwin, name)

	name, err = getLibraryName("windows")
	require.NoError(t, err)
	assert.Equal(t, libWindows, name)

	_, err = getLibraryName("plan9")
	assert.Error(t, err)
}

func TestFindLibrary_EnvOverride(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libonnxruntime.so")
	require.NoError(t, os.WriteFile(lib, []byte("stub"), 0o644))
	t.Setenv(EnvLibraryPath, lib)

	got, err := FindLibrary(false)
	require.NoError(t, err)
	assert.Equal(t, lib, got)
}

func TestFindLibrary_EnvOverrideMissing(t *testing.T) {
	t.Setenv(EnvLibraryPath, filepath.Join(t.TempDir(), "missing.so"))
	_, err := FindLibrary(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvLibraryPath)
}

func TestFindLibrary_ProjectLocal(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("system paths checked first differ per OS")
	}
	for _, p := range getSystemLibraryPaths(false) {
		if fileExists(p) {
			t.Skip("system ONNX Runtime installed; project-local lookup not reached")
		}
	}
	t.Setenv(EnvLibraryPath, "")

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644))
	libDir := filepath.Join(root, "onnxruntime", "lib")
	require.NoError(t, os.MkdirAll(libDir, 0o755))
	lib := filepath.Join(libDir, libLinux)
	require.NoError(t, os.WriteFile(lib, []byte("stub"), 0o644))

	t.Chdir(root)

	got, err := FindLibrary(false)
	require.NoError(t, err)
	assert.Equal(t, lib, got)
}

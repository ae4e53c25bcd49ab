package support

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// StartServer starts "lotra serve" as a child process and waits until the
// health endpoint answers.
func (testCtx *TestContext) StartServer(command string) error {
	command = testCtx.substituteCommandVariables(command)
	if err := testCtx.parseServerCommand(command); err != nil {
		return err
	}

	if testCtx.isPortInUse(testCtx.ServerPort) {
		return fmt.Errorf("port %d is already in use", testCtx.ServerPort)
	}

	parts, err := splitCommand(command)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] == "lotra" {
		parts[0] = testCtx.BinaryPath
	}

	cmd := exec.Command(parts[0], parts[1:]...) //nolint:gosec // G204: scenario-controlled command
	cmd.Dir = testCtx.WorkingDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	testCtx.ServerProcess = cmd.Process
	testCtx.ServerExit = make(chan error, 1)
	go func() { testCtx.ServerExit <- cmd.Wait() }()

	if err := testCtx.waitForServerReady(); err != nil {
		if stopErr := testCtx.StopServer(); stopErr != nil {
			return fmt.Errorf("server failed to start and also failed to stop: %w; stop error: %w", err, stopErr)
		}
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// StopServerProcess sends SIGTERM and waits for the process to exit.
func (testCtx *TestContext) StopServerProcess() error {
	if testCtx.ServerProcess == nil {
		return nil
	}

	if err := testCtx.ServerProcess.Signal(syscall.SIGTERM); err != nil {
		if killErr := testCtx.ServerProcess.Kill(); killErr != nil {
			return fmt.Errorf("failed to kill server process: %w", killErr)
		}
	}

	err := testCtx.waitForServerExit(15 * time.Second)
	testCtx.ServerProcess = nil
	return err
}

// waitForServerExit waits for the server process started by StartServer.
func (testCtx *TestContext) waitForServerExit(timeout time.Duration) error {
	if testCtx.ServerExit == nil {
		return nil
	}
	select {
	case err := <-testCtx.ServerExit:
		testCtx.ServerExit = nil
		return err
	case <-time.After(timeout):
		_ = testCtx.ServerProcess.Kill()
		return errors.New("server did not exit within timeout")
	}
}

// parseServerCommand extracts the port and host from a serve command line.
func (testCtx *TestContext) parseServerCommand(command string) error {
	parts := strings.Fields(command)

	testCtx.ServerPort = 5000
	testCtx.ServerHost = "localhost"

	for i, part := range parts {
		switch part {
		case "--port", "-p":
			if i+1 < len(parts) {
				port, err := strconv.Atoi(parts[i+1])
				if err != nil {
					return fmt.Errorf("invalid port: %s", parts[i+1])
				}
				testCtx.ServerPort = port
			}
		case "--host", "-H":
			if i+1 < len(parts) && parts[i+1] != "0.0.0.0" {
				testCtx.ServerHost = parts[i+1]
			}
		}

		if portStr, ok := strings.CutPrefix(part, "--port="); ok {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return fmt.Errorf("invalid port: %s", portStr)
			}
			testCtx.ServerPort = port
		}
	}

	return nil
}

// isPortInUse checks if a port is already in use.
func (testCtx *TestContext) isPortInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), time.Second)
	if err != nil {
		return false
	}
	if err := conn.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing connection: %v\n", err)
	}
	return true
}

// waitForServerReady waits for the server to respond to health checks.
func (testCtx *TestContext) waitForServerReady() error {
	timeout := time.Now().Add(10 * time.Second)

	for time.Now().Before(timeout) {
		if testCtx.isServerHealthy() {
			return nil
		}
		select {
		case err := <-testCtx.ServerExit:
			testCtx.ServerExit = nil
			testCtx.ServerProcess = nil
			return fmt.Errorf("server exited early: %w", err)
		case <-time.After(100 * time.Millisecond):
		}
	}

	return errors.New("server did not become ready within timeout")
}

// isServerHealthy checks if the server responds to health endpoint.
func (testCtx *TestContext) isServerHealthy() bool {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(testCtx.GetServerURL() + "/health")
	if err != nil {
		return false
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing response body: %v\n", err)
		}
	}()

	return resp.StatusCode == http.StatusOK
}

// GetServerURL returns the base URL for the running server.
func (testCtx *TestContext) GetServerURL() string {
	if testCtx.HTTPTestServer != nil && testCtx.HTTPTestServer.Server != nil {
		return testCtx.HTTPTestServer.Server.URL
	}
	return fmt.Sprintf("http://%s:%d", testCtx.ServerHost, testCtx.ServerPort)
}

// SendSignalToServer sends a signal to the running server.
func (testCtx *TestContext) SendSignalToServer(signal os.Signal) error {
	if testCtx.ServerProcess == nil {
		return errors.New("no server process running")
	}

	return testCtx.ServerProcess.Signal(signal)
}

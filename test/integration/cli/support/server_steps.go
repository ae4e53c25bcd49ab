package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// iStartTheServerWith starts a real "lotra serve" process on the lambda
// backend, which needs no local model files. Warmup is disabled so startup
// never reaches AWS.
func (testCtx *TestContext) iStartTheServerWith(command string) error {
	testCtx.AddEnvVar("LOTRA_BACKEND_LAMBDA_FUNCTION_NAME", "lotra-integration-test")
	testCtx.AddEnvVar("LOTRA_TRANSLATOR_WARMUP", "false")
	testCtx.AddEnvVar("AWS_REGION", "us-east-1")
	testCtx.AddEnvVar("AWS_EC2_METADATA_DISABLED", "true")
	return testCtx.StartServer(command)
}

func (testCtx *TestContext) theServerShouldBeHealthy() error {
	if !testCtx.isServerHealthy() {
		return errors.New("server is not healthy")
	}
	return nil
}

// iSendSignalToTheServer delivers SIGTERM or SIGINT to the server process.
func (testCtx *TestContext) iSendSignalToTheServer(signalName string) error {
	var signal os.Signal

	switch strings.ToUpper(signalName) {
	case "SIGTERM":
		signal = syscall.SIGTERM
	case "SIGINT":
		signal = syscall.SIGINT
	default:
		return fmt.Errorf("unsupported signal: %s", signalName)
	}

	return testCtx.SendSignalToServer(signal)
}

// theServerShouldShutdownGracefully waits for a zero exit status.
func (testCtx *TestContext) theServerShouldShutdownGracefully() error {
	err := testCtx.waitForServerExit(15 * time.Second)
	testCtx.ServerProcess = nil
	if err != nil {
		return fmt.Errorf("server did not shut down cleanly: %w", err)
	}
	if testCtx.isServerHealthy() {
		return errors.New("server is still responding after shutdown signal")
	}
	return nil
}

func (testCtx *TestContext) iGET(endpoint string) error {
	return testCtx.makeHTTPRequest(http.MethodGet, endpoint, "")
}

func (testCtx *TestContext) iMakeAnOPTIONSRequestTo(endpoint string) error {
	return testCtx.makeHTTPRequest(http.MethodOptions, endpoint, "")
}

func (testCtx *TestContext) iPOSTJSONTo(endpoint string, body *godog.DocString) error {
	return testCtx.makeHTTPRequest(http.MethodPost, endpoint, body.Content)
}

// iPOSTJSONToTimes repeats the same request, keeping the last response.
func (testCtx *TestContext) iPOSTJSONToTimes(endpoint string, times int, body *godog.DocString) error {
	for range times {
		if err := testCtx.makeHTTPRequest(http.MethodPost, endpoint, body.Content); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(expectedStatus int) error {
	if testCtx.LastHTTPStatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d. Response: %s",
			expectedStatus, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldBeValidJSON() error {
	if !json.Valid([]byte(testCtx.LastHTTPResponse)) {
		return fmt.Errorf("response is not valid JSON: %s", testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseFieldShouldBe(path, expected string) error {
	return jsonFieldEquals(testCtx.LastHTTPResponse, path, expected)
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("expected response to contain %q, got: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]
	if got != expected {
		return fmt.Errorf("expected header %s=%q, got %q", name, expected, got)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBeSet(name string) error {
	if testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)] == "" {
		return fmt.Errorf("expected header %s to be set", name)
	}
	return nil
}

// iSendTheWebSocketMessage opens /ws/translate, sends one message and reads
// replies until the request completes or fails.
func (testCtx *TestContext) iSendTheWebSocketMessage(message *godog.DocString) error {
	wsURL := "ws" + strings.TrimPrefix(testCtx.GetServerURL(), "http") + "/ws/translate"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(message.Content)); err != nil {
		return fmt.Errorf("failed to send websocket message: %w", err)
	}

	testCtx.LastWebSocketMessages = nil
	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read websocket reply: %w", err)
		}
		testCtx.LastWebSocketMessages = append(testCtx.LastWebSocketMessages, string(data))
		if status := gjson.GetBytes(data, "status").String(); status == "completed" || status == "error" {
			return nil
		}
	}
}

// theWebSocketStatusesShouldBe compares the comma-separated status sequence.
func (testCtx *TestContext) theWebSocketStatusesShouldBe(expected string) error {
	statuses := make([]string, 0, len(testCtx.LastWebSocketMessages))
	for _, msg := range testCtx.LastWebSocketMessages {
		statuses = append(statuses, gjson.Get(msg, "status").String())
	}
	if got := strings.Join(statuses, ","); got != expected {
		return fmt.Errorf("expected websocket statuses %q, got %q", expected, got)
	}
	return nil
}

func (testCtx *TestContext) theLastWebSocketFieldShouldBe(path, expected string) error {
	if len(testCtx.LastWebSocketMessages) == 0 {
		return errors.New("no websocket messages received")
	}
	return jsonFieldEquals(testCtx.LastWebSocketMessages[len(testCtx.LastWebSocketMessages)-1], path, expected)
}

func (testCtx *TestContext) makeHTTPRequest(method, endpoint, body string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	url := testCtx.GetServerURL() + endpoint

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, url, reader) //nolint:noctx // bounded by client timeout
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		testCtx.LastError = err
		testCtx.LastExitCode = 1
		return nil // verification steps report the failure
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	testCtx.LastOutput = string(data)
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	testCtx.LastExitCode = 0
	if resp.StatusCode >= 400 {
		testCtx.LastExitCode = 1
		testCtx.LastError = fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	testCtx.LastHTTPHeaders = make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			testCtx.LastHTTPHeaders[key] = values[0]
		}
	}

	return nil
}

// RegisterServerSteps registers all server mode step definitions.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	// In-process API over a fake backend
	sc.Step(`^the translation API is running$`, testCtx.theTranslationAPIIsRunning)
	sc.Step(`^the translation API is running with a (\d+) second timeout$`, testCtx.theTranslationAPIIsRunningWithTimeout)
	sc.Step(`^the translation API is running with a limit of (\d+) requests per minute$`,
		testCtx.theTranslationAPIIsRunningWithRequestsPerMinute)
	sc.Step(`^the backend fails with "([^"]*)"$`, testCtx.theBackendFailsWith)
	sc.Step(`^the backend never answers$`, testCtx.theBackendNeverAnswers)
	sc.Step(`^the backend translates "([^"]*)" to "([^"]*)"$`, testCtx.theBackendTranslatesTo)
	sc.Step(`^the backend should have received (\d+) requests?$`, testCtx.theBackendShouldHaveReceivedRequests)
	sc.Step(`^the backend should have been asked for "([^"]*)" to "([^"]*)"$`, testCtx.theBackendShouldHaveBeenAskedFor)

	// Server process
	sc.Step(`^I start the server with "([^"]*)"$`, testCtx.iStartTheServerWith)
	sc.Step(`^the server should be healthy$`, testCtx.theServerShouldBeHealthy)
	sc.Step(`^I send (SIG[A-Z]+) to the server$`, testCtx.iSendSignalToTheServer)
	sc.Step(`^the server should shutdown gracefully$`, testCtx.theServerShouldShutdownGracefully)

	// Requests
	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I make an OPTIONS request to "([^"]*)"$`, testCtx.iMakeAnOPTIONSRequestTo)
	sc.Step(`^I POST to "([^"]*)" with JSON:$`, testCtx.iPOSTJSONTo)
	sc.Step(`^I POST to "([^"]*)" (\d+) times with JSON:$`, testCtx.iPOSTJSONToTimes)
	sc.Step(`^I send the websocket message:$`, testCtx.iSendTheWebSocketMessage)

	// Responses
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should be valid JSON$`, testCtx.theResponseShouldBeValidJSON)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseFieldShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response header "([^"]*)" should be set$`, testCtx.theResponseHeaderShouldBeSet)
	sc.Step(`^the websocket statuses should be "([^"]*)"$`, testCtx.theWebSocketStatusesShouldBe)
	sc.Step(`^the last websocket message field "([^"]*)" should be "([^"]*)"$`, testCtx.theLastWebSocketFieldShouldBe)
}

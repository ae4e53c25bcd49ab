package support

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/lotra/internal/lang"
)

// theErrorShouldMention checks that the failed command's output contains
// errorText, ignoring case.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastExitCode == 0 {
		return errors.New("expected command to fail, but it succeeded")
	}
	if !strings.Contains(strings.ToLower(testCtx.LastOutput), strings.ToLower(errorText)) {
		return fmt.Errorf("expected error to mention %q, but got:\n%s", errorText, testCtx.LastOutput)
	}
	return nil
}

// theErrorShouldMentionEither accepts either of two phrasings.
func (testCtx *TestContext) theErrorShouldMentionEither(first, second string) error {
	if err := testCtx.theErrorShouldMention(first); err == nil {
		return nil
	}
	return testCtx.theErrorShouldMention(second)
}

// theErrorShouldMentionMissingModels verifies the model-not-found path.
func (testCtx *TestContext) theErrorShouldMentionMissingModels() error {
	return testCtx.theErrorShouldMentionEither("model file not found", "failed to load translator")
}

// theErrorShouldMentionUnsupportedLanguage verifies the language list is named.
func (testCtx *TestContext) theErrorShouldMentionUnsupportedLanguage() error {
	if err := testCtx.theErrorShouldMention("unsupported language"); err != nil {
		return err
	}
	for _, code := range lang.SupportedStrings() {
		if !strings.Contains(testCtx.LastOutput, code) {
			return fmt.Errorf("error does not list supported code %q: %s", code, testCtx.LastOutput)
		}
	}
	return nil
}

// theErrorReasonShouldBe checks the reason of a JSON error body on stdout.
func (testCtx *TestContext) theErrorReasonShouldBe(reason string) error {
	if testCtx.LastExitCode == 0 {
		return errors.New("expected command to fail, but it succeeded")
	}
	return jsonFieldEquals(testCtx.LastStdout, "reason", reason)
}

// theErrorShouldSuggestAvailableCommands verifies command suggestion error.
func (testCtx *TestContext) theErrorShouldSuggestAvailableCommands() error {
	suggestionIndicators := []string{"unknown command", "did you mean", "help"}
	for _, indicator := range suggestionIndicators {
		if strings.Contains(strings.ToLower(testCtx.LastOutput), indicator) {
			return nil
		}
	}
	return fmt.Errorf("error does not suggest available commands: %s", testCtx.LastOutput)
}

// theOutputShouldContainVersionInformation verifies version output.
func (testCtx *TestContext) theOutputShouldContainVersionInformation() error {
	if !strings.Contains(testCtx.LastOutput, "lotra version") {
		return fmt.Errorf("output does not contain version information: %s", testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldListAvailableSubcommands verifies the help text.
func (testCtx *TestContext) theOutputShouldListAvailableSubcommands() error {
	for _, sub := range []string{"translate", "file", "serve", "interactive", "languages", "config"} {
		if !strings.Contains(testCtx.LastOutput, sub) {
			return fmt.Errorf("help does not list subcommand %q:\n%s", sub, testCtx.LastOutput)
		}
	}
	return nil
}

// RegisterErrorSteps registers error-path step definitions.
func (testCtx *TestContext) RegisterErrorSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the error should mention "([^"]*)" or "([^"]*)"$`, testCtx.theErrorShouldMentionEither)
	sc.Step(`^the error should mention missing models$`, testCtx.theErrorShouldMentionMissingModels)
	sc.Step(`^the error should mention an unsupported language$`, testCtx.theErrorShouldMentionUnsupportedLanguage)
	sc.Step(`^the error reason should be "([^"]*)"$`, testCtx.theErrorReasonShouldBe)
	sc.Step(`^the error should suggest available commands$`, testCtx.theErrorShouldSuggestAvailableCommands)

	sc.Step(`^the output should contain version information$`, testCtx.theOutputShouldContainVersionInformation)
	sc.Step(`^the output should list available subcommands$`, testCtx.theOutputShouldListAvailableSubcommands)
}

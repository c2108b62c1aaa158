package generator

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/culturequiz/backend/internal/apperr"
)

// CommandClient runs a local model command for offline development. The
// system and user prompts are written to its stdin separated by a blank
// line; whatever it prints is the response body.
type CommandClient struct {
	path string
	args []string
}

// NewCommandClient parses a command line such as "llm -m local".
func NewCommandClient(commandLine string) (*CommandClient, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, apperr.New(apperr.ErrConfiguration, "GENERATOR_COMMAND is empty")
	}
	return &CommandClient{path: fields[0], args: fields[1:]}, nil
}

func (c *CommandClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	cmd := exec.CommandContext(ctx, c.path, c.args...)
	cmd.Stdin = strings.NewReader(systemPrompt + "\n\n" + userPrompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, apperr.Wrap(apperr.ErrConfiguration, "generator command not found", err)
		}
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return nil, &apperr.UpstreamError{
			Provider:   "command",
			StatusCode: code,
			Err:        errors.New(strings.TrimSpace(stderr.String())),
		}
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return nil, apperr.New(apperr.ErrGenerationFailed, "generator command returned empty output")
	}
	return &LLMResponse{Content: out}, nil
}

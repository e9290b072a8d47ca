package common

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tendermatch/internal/errors"
	"tendermatch/internal/types"
)

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRunCommandPassesFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	tender := writeInput(t, dir, "tender.txt", "Role: Backend Engineer")
	cv := writeInput(t, dir, "jane.md", "Name: Jane Doe")

	var seen []InputFile
	var stdout bytes.Buffer
	err := RunCommandTo(context.Background(), nil, CommandConfig{OutputFormat: "text"}, []string{tender, cv},
		func(ctx context.Context, files []InputFile) (types.TenderRequirements, error) {
			seen = files
			return types.TenderRequirements{Role: "Backend Engineer", Sector: types.NotSpecified}, nil
		}, &stdout)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, "Role: Backend Engineer", seen[0].Content)
	assert.Equal(t, "jane.md", seen[1].Name())
	assert.Contains(t, stdout.String(), "Role: Backend Engineer")
}

func TestRunCommandWritesOutputFile(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "cv", "Name: Jane Doe")
	out := filepath.Join(dir, "reports", "candidate.json")

	var stdout bytes.Buffer
	err := RunCommandTo(context.Background(), errors.Discard(), CommandConfig{OutputFormat: "json", OutputFile: out}, []string{input},
		func(ctx context.Context, files []InputFile) (types.CandidateProfile, error) {
			return types.CandidateProfile{Name: "Jane Doe"}, nil
		}, &stdout)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "Jane Doe"`)
	assert.Empty(t, stdout.String())
}

func TestRunCommandRejectsBadInputs(t *testing.T) {
	dir := t.TempDir()
	big := writeInput(t, dir, "big.txt", strings.Repeat("x", 128))
	pdf := writeInput(t, dir, "cv.pdf", "%PDF")

	called := false
	op := func(ctx context.Context, files []InputFile) (types.CandidateProfile, error) {
		called = true
		return types.CandidateProfile{}, nil
	}

	tests := []struct {
		name string
		args []string
		cfg  CommandConfig
		code string
	}{
		{name: "missing file", args: []string{filepath.Join(dir, "nope.txt")}, code: errors.ErrCodeFileNotFound},
		{name: "wrong extension", args: []string{pdf}, code: errors.ErrCodeInvalidFormat},
		{name: "too large", args: []string{big}, cfg: CommandConfig{MaxFileSize: 64}, code: errors.ErrCodeInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.OutputFormat = "json"
			err := RunCommandTo(context.Background(), nil, tt.cfg, tt.args, op, &bytes.Buffer{})
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
	assert.False(t, called)
}

func TestHandleOutputUnknownFormat(t *testing.T) {
	handler := NewOutputHandlerTo(nil, &bytes.Buffer{})
	err := handler.HandleOutput(types.CandidateProfile{}, CommandConfig{OutputFormat: "yaml"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFormat))
	assert.Equal(t, []string{"json", "markdown", "text"}, handler.GetSupportedFormats())
}

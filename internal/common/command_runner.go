package common

import (
	"context"
	"io"
	"os"

	"tendermatch/internal/errors"
)

// OperationFunc turns validated input files into a formattable result
type OperationFunc[Output any] func(ctx context.Context, files []InputFile) (Output, error)

// RunCommand reads and validates the argument files, runs op on them and
// writes the formatted result.
func RunCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	op OperationFunc[Output],
) error {
	return RunCommandTo(ctx, logger, cmdConfig, args, op, os.Stdout)
}

// RunCommandTo is RunCommand with an explicit destination for stdout output
func RunCommandTo[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	op OperationFunc[Output],
	stdout io.Writer,
) error {
	if logger == nil {
		logger = errors.Discard()
	}
	fileProcessor := NewFileProcessor(logger, cmdConfig.MaxFileSize)
	outputHandler := NewOutputHandlerTo(logger, stdout)

	files, err := fileProcessor.ValidateAndReadFiles(args...)
	if err != nil {
		return err
	}

	logger.Debug("Running command", "files", len(files), "format", cmdConfig.OutputFormat)

	result, err := op(ctx, files)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}

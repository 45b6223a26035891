package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/marcus/bujo/internal/bujo"
	"github.com/marcus/bujo/internal/chart"
	"github.com/marcus/bujo/internal/journal"
	"github.com/marcus/bujo/internal/output"
	"github.com/marcus/bujo/internal/transcribe"
	"github.com/marcus/bujo/internal/vision"
)

var invalidInputErrors = []error{
	bujo.ErrEmptyText,
	bujo.ErrInvalidDate,
	bujo.ErrEmptyMessage,
	bujo.ErrNoAudio,
	bujo.ErrNoImage,
	journal.ErrInvalidDate,
	journal.ErrInvalidUserID,
	transcribe.ErrNoSpeech,
	transcribe.ErrUnsupportedFormat,
	vision.ErrNotImage,
}

// errorCode classifies err for JSON output.
func errorCode(err error) string {
	for _, target := range invalidInputErrors {
		if errors.Is(err, target) {
			return output.ErrCodeInvalidInput
		}
	}
	switch {
	case errors.Is(err, journal.ErrNotFound):
		return output.ErrCodeNotFound
	case errors.Is(err, chart.ErrNoData):
		return output.ErrCodeNoData
	default:
		return output.ErrCodeInternal
	}
}

// fail reports err in the output mode of cmd and returns it for cobra.
func fail(cmd *cobra.Command, err error) error {
	if jsonOutput(cmd) {
		output.JSONError(errorCode(err), err.Error())
	} else {
		output.Error("%v", err)
	}
	return err
}

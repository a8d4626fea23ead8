package openai

import (
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
)

func convertError(err error) error {
	var apierr *openai.Error

	if errors.As(err, &apierr) {
		return fmt.Errorf("openai: status %d: %w", apierr.StatusCode, err)
	}

	return err
}

package anthropic

import (
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

func convertError(err error) error {
	var apierr *anthropic.Error

	if errors.As(err, &apierr) {
		return fmt.Errorf("anthropic: status %d: %w", apierr.StatusCode, err)
	}

	return err
}

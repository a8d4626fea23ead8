package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/adrianliechti/forge/pkg/commit"
	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/overlay"
	"github.com/adrianliechti/forge/pkg/planner"
	"github.com/adrianliechti/forge/server/api"
)

// do sends a JSON request and decodes the JSON response into out. Failures
// are mapped onto the commit error taxonomy: network errors and 5xx become
// transport errors, 409 PATCH_CONFLICT a conflict, 422 a planning failure and
// any other 4xx a validation error.
func do(ctx context.Context, c *RequestConfig, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		var data bytes.Buffer

		if err := json.NewEncoder(&data).Encode(in); err != nil {
			return err
		}

		body = &data
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL+path, body)

	if err != nil {
		return err
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)

	if err != nil {
		return &commit.TransportError{Err: err}
	}

	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return responseError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &commit.TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	return nil
}

func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var e api.Error

	if err := json.Unmarshal(data, &e); err != nil || e.Message == "" {
		e.Message = resp.Status
	}

	switch {
	case resp.StatusCode >= 500:
		return &commit.TransportError{StatusCode: resp.StatusCode, Err: errors.New(e.Message)}

	case resp.StatusCode == http.StatusConflict && e.Code == overlay.CodeConflict:
		var details document.ConflictDetails

		if len(e.Details) > 0 {
			if err := json.Unmarshal(e.Details, &details); err != nil {
				return &commit.TransportError{StatusCode: resp.StatusCode, Err: err}
			}
		}

		return commit.NewConflictError(e.Message, details)

	case resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", planner.ErrPlanningFailed, e.Message)
	}

	code := e.Code

	if code == "" {
		code = fmt.Sprintf("http_%d", resp.StatusCode)
	}

	return &commit.ValidationError{Code: code, Message: e.Message}
}

package retry

import (
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// ClassifyAPIError marks OpenAI-compatible client errors (4xx other than 408 and 429)
// as Permanent and returns any other error unchanged.
func ClassifyAPIError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	code := apiErr.HTTPStatusCode
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout {
		return Permanent(err)
	}
	return err
}

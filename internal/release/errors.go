package release

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v67/github"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

var (
	// ErrNetwork is returned when the release feed cannot be reached or
	// answers with an error status.
	ErrNetwork = errors.New("release: feed unreachable")

	// ErrParse is returned when the feed answers with data that violates its
	// contract, such as a malformed publish timestamp.
	ErrParse = errors.New("release: malformed feed")

	// ErrRateLimited is returned alongside ErrNetwork when the API rate limit is hit.
	ErrRateLimited = errors.New("release: api rate limit exceeded")

	// ErrNotFound is returned alongside ErrNetwork when the repository does not exist.
	ErrNotFound = errors.New("release: repository not found")

	// ErrUnauthorized is returned alongside ErrNetwork when the token is rejected.
	ErrUnauthorized = errors.New("release: token unauthorized or expired")
)

// classify maps client errors onto the package sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		timeErr   *time.ParseError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	if errors.As(err, &timeErr) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %w: %w", ErrNetwork, ErrRateLimited, err)
	}

	if status := statusOf(err); status != 0 {
		switch status {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %w: %w", ErrNetwork, ErrUnauthorized, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w: %w", ErrNetwork, ErrNotFound, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w: %w", ErrNetwork, ErrRateLimited, err)
		}
	}

	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

func statusOf(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}

	var glErr *gitlab.ErrorResponse
	if errors.As(err, &glErr) && glErr.Response != nil {
		return glErr.Response.StatusCode
	}

	return 0
}

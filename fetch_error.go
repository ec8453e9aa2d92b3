package feedwatch

import "fmt"

// Category classifies why fetching a subscription failed.
type Category string

const (
	// CategoryURL means the subscription URL could not be used.
	CategoryURL Category = "url"
	// CategoryTransport covers network errors, timeouts and non-success
	// HTTP statuses.
	CategoryTransport Category = "transport"
	// CategoryFormat means the body was not a feed document.
	CategoryFormat Category = "format"
)

// FetchError describes a failed fetch of a single subscription.
type FetchError struct {
	Category Category
	URL      string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s error fetching %s: %v", e.Category, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func newFetchError(category Category, url string, err error) *FetchError {
	return &FetchError{Category: category, URL: url, Err: err}
}

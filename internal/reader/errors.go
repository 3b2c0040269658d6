package reader

import "fmt"

// FeedReadError reports that a feed could not be fetched or parsed.
// StatusCode is set when the server answered with a non-2xx status.
type FeedReadError struct {
	Message    string
	StatusCode int
}

func (e *FeedReadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("feed read error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return "feed read error: " + e.Message
}

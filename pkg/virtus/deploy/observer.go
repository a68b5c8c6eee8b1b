package deploy

import (
	"errors"

	"github.com/virtuscloud/virtus/pkg/client"
)

// Level classifies a banner.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Banner is a short, user-facing progress or error message.
type Banner struct {
	Level   Level
	Message string
}

// Observer receives banners as the wizard progresses.
type Observer interface {
	Banner(b Banner)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Banner)

// Banner calls f(b).
func (f ObserverFunc) Banner(b Banner) { f(b) }

type nopObserver struct{}

func (nopObserver) Banner(Banner) {}

// Message returns the text shown for err: the API's error or message field
// when the server supplied one, otherwise the error text.
func Message(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

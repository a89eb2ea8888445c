package notifier

import "context"

// MediaItem is one image of a media group. Either URL or Data is set.
type MediaItem struct {
	Caption string
	URL     string
	Data    []byte
}

// Notifier is the channel ads are delivered to.
type Notifier interface {
	SendMediaGroup(ctx context.Context, target int64, items []MediaItem) error
	SendMessage(ctx context.Context, target int64, text string) error
}

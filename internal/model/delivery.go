package model

import "time"

type DeliveryStatus int

const (
	Sent DeliveryStatus = iota
	SkippedBusiness
	Failed
)

func (ds DeliveryStatus) String() string {
	return [...]string{"sent", "skipped business", "failed"}[ds]
}

// Result is the outcome of delivering a single ad. Err is set only when Status is Failed.
type Result struct {
	AdID   string
	Status DeliveryStatus
	Err    error
}

// DeliveryEvent is the record published to kafka and stored in the delivery audit table.
type DeliveryEvent struct {
	AdID          string    `json:"ad_id"`
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	OriginalURL   string    `json:"original_url,omitempty"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	IsBusiness    bool      `json:"is_business"`
	ProcessedAt   time.Time `json:"processed_at"`
	WorkerVersion string    `json:"worker_version"`
}

// NewDeliveryEvent builds the event for ad from its delivery result.
func NewDeliveryEvent(ad *Ad, res Result, version string, now time.Time) *DeliveryEvent {
	e := &DeliveryEvent{
		AdID:          ad.ID,
		Title:         ad.Title,
		URL:           ad.URL,
		OriginalURL:   ad.OriginalURL,
		Status:        res.Status.String(),
		ProcessedAt:   now,
		WorkerVersion: version,
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	if ad.IsBusiness != nil {
		e.IsBusiness = *ad.IsBusiness
	}
	return e
}

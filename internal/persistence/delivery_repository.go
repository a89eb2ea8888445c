package persistence

import (
	"database/sql"
	"log/slog"

	"github.com/IliaW/listing-alert-worker/internal/model"
)

type DeliveryStorage interface {
	Save(*model.DeliveryEvent)
}

// DeliveryRepository keeps an audit trail of delivery results in the ad_delivery table.
type DeliveryRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewDeliveryRepository(db *sql.DB, log *slog.Logger) *DeliveryRepository {
	return &DeliveryRepository{db: db, log: log}
}

func (dr *DeliveryRepository) Save(event *model.DeliveryEvent) {
	_, err := dr.db.Exec("INSERT INTO ad_delivery (ad_id, title, url, original_url, status, error, is_business, processed_at, worker_version) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		event.AdID,
		event.Title,
		event.URL,
		event.OriginalURL,
		event.Status,
		event.Error,
		event.IsBusiness,
		event.ProcessedAt,
		event.WorkerVersion)
	if err != nil {
		dr.log.Error("failed to save delivery event to database.", slog.String("err", err.Error()))
		return
	}
	dr.log.Debug("delivery event saved to db.")
}

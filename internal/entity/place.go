package entity

import "time"

// Place is a dataitem row. DateStart and DateEnd hold UTC midnights.
type Place struct {
	ID           int64      `json:"id"`
	DatasetID    int64      `json:"dataset_id"`
	Title        string     `json:"title"`
	RecordTypeID int        `json:"recordtype_id"`
	Description  *string    `json:"description"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
	DateStart    *time.Time `json:"datestart"`
	DateEnd      *time.Time `json:"dateend"`
	Source       string     `json:"source"`
	ExternalURL  string     `json:"external_url"`
	ExtendedData *string    `json:"extended_data"`
	DatasourceID int        `json:"datasource_id"`
	UID          *string    `json:"uid"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

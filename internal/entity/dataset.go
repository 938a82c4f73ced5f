package entity

import "time"

const (
	// RecordTypeOther is the "Other" row of tlcmap.recordtype.
	RecordTypeOther = 1
	// DatasourceGHAP is the datasource every imported place is attributed to.
	DatasourceGHAP = 1
	RoleOwner      = "OWNER"
)

type Dataset struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Public       bool      `json:"public"`
	Publisher    string    `json:"publisher"`
	Contact      string    `json:"contact"`
	SourceURL    string    `json:"source_url"`
	License      *string   `json:"license"`
	Rights       *string   `json:"rights"`
	RecordTypeID int       `json:"recordtype_id"`
	Linkback     string    `json:"linkback"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Ownership is a user_dataset row.
type Ownership struct {
	UserID    int64     `json:"user_id"`
	DatasetID int64     `json:"dataset_id"`
	Role      string    `json:"dsrole"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

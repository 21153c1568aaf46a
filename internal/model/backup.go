package model

import "time"

// BackupFile is the on-disk backup format: UTF-8 JSON, written to
// backup-<timestamp>.json where the timestamp is ISO-8601 with ':' and '.'
// replaced by '-' so the newest file sorts last lexicographically.
type BackupFile struct {
	Appointments []Appointment  `json:"appointments"`
	ShoppingList []ShoppingItem `json:"shoppingList"`
	LastBackup   time.Time      `json:"lastBackup"`
}

// RestoredState is what Restore hands back to the caller: store-shaped data
// for both collections. Applying it to the stores is the caller's job.
type RestoredState struct {
	Appointments []Appointment  `json:"appointments"`
	ShoppingList []ShoppingItem `json:"shoppingList"`
}

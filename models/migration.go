package models

import (
	"log"

	"bitbucket.org/mmdatafocus/facilities_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Asset{},
		&FilterChangeRecord{},
		&AuditEntry{},
		&ReferenceCatalogEntry{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}

// Package models contains GORM-specific persistence models that map to the
// lcm_* tables. They are kept apart from the domain entities so the domain
// layer stays free of ORM tags; each model carries ToDomain/FromDomain mappers.
package models

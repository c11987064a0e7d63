// Package models contains the GORM persistence models and declares their
// many-to-many relations.
//
// Join tables with a tenant column (article_tags, user_roles) are declared
// tenant-scoped, so every link written to them is stamped with the tenant
// or account of the current context. article_categories is shared.
package models

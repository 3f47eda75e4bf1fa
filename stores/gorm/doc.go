//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-based implementation of the authkit FlowStore
// interface. It supports any database that GORM supports and suits desktop
// or kiosk deployments that already carry an embedded relational database.
//
// # Usage
//
//	db, _ := gorm.Open(sqlite.Open(path), &gorm.Config{})
//	if err := gormstore.AutoMigrate(db); err != nil { ... }
//	flows := gormstore.NewFlowStore(db)
package gorm

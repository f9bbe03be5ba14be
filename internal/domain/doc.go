// Package domain defines the models shared by the point-of-sale client core:
// sale requests and server sales, dashboard and catalog read models, queued
// offline transactions, and the GORM-mapped rows of the local store.
//
// Wire types mirror the JSON the remote API produces (camelCase fields).
// Monetary values use shopspring/decimal to avoid float rounding drift in
// totals that are cached and replayed.
package domain

// Package database manages the TimescaleDB connection pool used for
// recorded time-series data.
package database

// Package formats provides binary codecs for tile grid files.
//
// TMAP is the on-disk form of a tilemap.Grid: a fixed header followed by
// every layer's cells in row-major order. See tmap.go.
package formats

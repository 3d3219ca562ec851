//go:build !(cgo && netlib)

package utils

var BLASImplementation = "gonum"

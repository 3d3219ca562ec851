package utils

import (
	"fmt"
	"math"
	"math/cmplx"
	"runtime"
)

func GetMemUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	// For info on each, see: https://golang.org/pkg/runtime/#MemStats
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}
	return fmt.Sprintf("Alloc = %v MiB TotalAlloc = %v MiB Sys = %v MiB NumGC = %v",
		bToMb(m.Alloc), bToMb(m.TotalAlloc), bToMb(m.Sys), m.NumGC)
}

// IsNonFinite reports whether any value is NaN or infinite
func IsNonFinite(A any) bool {
	switch v := A.(type) {
	case float64:
		return math.IsNaN(v) || math.IsInf(v, 0)
	case complex128:
		return cmplx.IsNaN(v) || cmplx.IsInf(v)
	case []float64:
		for _, f := range v {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return true
			}
		}
	case []complex128:
		for _, f := range v {
			if cmplx.IsNaN(f) || cmplx.IsInf(f) {
				return true
			}
		}
	case [][]complex128:
		for _, row := range v {
			if IsNonFinite(row) {
				return true
			}
		}
	}
	return false
}

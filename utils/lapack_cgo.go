//go:build cgo && netlib

package utils

/*
#cgo CFLAGS: -march=native -mavx -mavx2
#cgo LDFLAGS: -lopenblas -llapacke -lgfortran -lm -lpthread
#include <cblas.h>
#include <lapacke.h>
*/
import "C"

import (
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/blas/cblas128"
	netblas "gonum.org/v1/netlib/blas/netlib"
)

// BLASImplementation names the active BLAS backend for reports
var BLASImplementation = "netlib"

func init() {
	blas64.Use(netblas.Implementation{})
	cblas128.Use(netblas.Implementation{})
}

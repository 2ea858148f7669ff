package main

import (
	"os"

	"github.com/courrier-mf/courrier/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

// Command mtavector replays two-party signing test vectors and generates key material.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Error("mtavector failed")
		os.Exit(1)
	}
}

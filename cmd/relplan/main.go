package main

import (
	"github.com/rs/zerolog/log"

	"github.com/matthewbaird/relplan/cmd/relplan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}

package main

import (
	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/storage"
)

// InitStorage selects and returns the configured sound library backend.
func InitStorage(env Environment) storage.Library {
	if env.UseSpaces {
		spaces, err := storage.NewSpacesLibrary(
			env.SpacesEndpoint,
			env.SpacesRegion,
			env.SpacesBucket,
			env.SpacesAccessKey,
			env.SpacesSecretKey,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Spaces sound library")
		}
		log.Info().Str("bucket", env.SpacesBucket).Msg("using DigitalOcean Spaces sound library")
		return spaces
	}

	log.Info().Str("dir", env.SoundDir).Msg("using local sound library")
	return storage.NewLocalLibrary(env.SoundDir)
}

package main

import (
	"github.com/kestrelworks/portcullis/internal/authn"
	authnMongodb "github.com/kestrelworks/portcullis/internal/authn/mongodb"
	authnRedis "github.com/kestrelworks/portcullis/internal/authn/redis"
	authnREST "github.com/kestrelworks/portcullis/internal/authn/rest"
	"github.com/kestrelworks/portcullis/internal/lib/mongodb"
	"github.com/kestrelworks/portcullis/internal/lib/oidc"
	"github.com/kestrelworks/portcullis/internal/lib/redis"
	"github.com/kestrelworks/portcullis/internal/lib/restmachinery"
	libAuthn "github.com/kestrelworks/portcullis/internal/lib/restmachinery/authn"
)

func getAPIServerFromEnvironment() (restmachinery.Server, error) {

	// API server config
	apiConfig, err := restmachinery.GetConfigFromEnvironment()
	if err != nil {
		return nil, err
	}

	// Common
	database, err := mongodb.Database()
	if err != nil {
		return nil, err
	}

	// Users
	usersStore, err := authnMongodb.NewUsersStore(database)
	if err != nil {
		return nil, err
	}

	// Sessions-- depends on users
	sessionsConfig, err := authn.GetSessionsConfigFromEnvironment()
	if err != nil {
		return nil, err
	}
	var sessionsStore authn.SessionsStore
	if sessionsConfig.StoreType == authn.SessionsStoreTypeRedis {
		redisClient, err := redis.Client()
		if err != nil {
			return nil, err
		}
		sessionsStore = authnRedis.NewSessionsStore(redisClient)
	} else {
		if sessionsStore, err =
			authnMongodb.NewSessionsStore(database); err != nil {
			return nil, err
		}
	}
	oauth2Config, oidcIdentityVerifier, err :=
		oidc.GetConfigAndVerifierFromEnvironment()
	if err != nil {
		return nil, err
	}
	usersService := authn.NewUsersService(usersStore, sessionsStore)
	sessionsService := authn.NewSessionsService(
		sessionsStore,
		usersStore,
		sessionsConfig.TTL,
		oauth2Config,
		oidcIdentityVerifier,
	)

	// Stateless bearer tokens
	tokensConfig, err := authn.GetTokensConfigFromEnvironment()
	if err != nil {
		return nil, err
	}
	tokensService := authn.NewTokensService(
		usersStore,
		tokensConfig.SigningKey(),
		tokensConfig.TTL(),
	)

	baseEndpoints := &restmachinery.BaseEndpoints{
		TokenAuthFilter: libAuthn.NewTokenAuthFilter(
			sessionsService.GetByToken,
			usersService.Get,
			tokensService.Resolve,
		),
	}

	return restmachinery.NewServer(
		apiConfig,
		baseEndpoints,
		[]restmachinery.Endpoints{
			authnREST.NewSessionsEndpoints(
				baseEndpoints,
				sessionsService,
				tokensService,
			),
			authnREST.NewUsersEndpoints(baseEndpoints, usersService),
		},
	), nil
}

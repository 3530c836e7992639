package main

import (
	"log"

	"github.com/kestrelworks/portcullis/internal/version"
)

func main() {
	log.Printf(
		"Starting Portcullis API Server -- version %s -- commit %s",
		version.Version(),
		version.Commit(),
	)

	apiServer, err := getAPIServerFromEnvironment()
	if err != nil {
		log.Fatal(err)
	}

	log.Println(apiServer.ListenAndServe())
}

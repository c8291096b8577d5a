package main

//go:generate swag init --dir ../../ --generalInfo internal/verifika/http/router.go --output ../../docs --outputTypes go,json

import (
	"log"

	_ "github.com/bluesystem/verifika/docs"
	"github.com/bluesystem/verifika/internal/verifika/app"
)

func main() {
	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

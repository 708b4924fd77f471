package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/docseal/internal/kdc"
	"github.com/dmitrijs2005/docseal/internal/kdc/config"
)

func main() {
	cfg := config.LoadConfig()

	app, err := kdc.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}

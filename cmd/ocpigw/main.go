package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ocpigw/internal/config"
	"ocpigw/internal/db"
	"ocpigw/internal/httpapi"
	"ocpigw/internal/obs"
	"ocpigw/internal/ocpi"
	"ocpigw/internal/partnerclient"
	"ocpigw/internal/repo"
	"ocpigw/internal/services"
)

func main() {
	cfg := config.Load()
	obs.Init()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()

	partners := repo.NewPartnersRepo(d.Pool)
	transactions := repo.NewTransactionsRepo(d.Pool)
	locations := repo.NewLocationsRepo(d.Pool)
	tariffs := repo.NewTariffsRepo(d.Pool)
	tokens := repo.NewTokensRepo(d.Pool)

	client := partnerclient.New(cfg.PartnerTimeout, cfg.PartnerRatePerSec)
	owner := ocpi.Identity{CountryCode: cfg.CountryCode, PartyID: cfg.PartyID}

	registration := &services.Registration{
		Partners:        partners,
		Client:          client,
		Self:            owner,
		SelfName:        cfg.PartyName,
		VersionsURL:     cfg.ExternalURL + "/ocpi/versions",
		RequiredVersion: cfg.RequiredVersion,
		StrictEndpoints: cfg.StrictEndpoints,
	}

	dispatcher := services.NewDispatcher(partners)
	deriver := services.NewDeriver(owner, locations, tokens, tariffs, transactions)
	roamer := &services.Roamer{
		Transactions: transactions,
		Locations:    locations,
		Tariffs:      tariffs,
		Deriver:      deriver,
		Sessions:     services.NewSessionBroadcaster(dispatcher, client, owner),
		Cdrs:         services.NewCdrBroadcaster(dispatcher, client, owner),
		TariffsBc:    services.NewTariffBroadcaster(dispatcher, client, owner),
		LocsBc:       services.NewLocationBroadcaster(dispatcher, client, owner),
	}

	srv := httpapi.NewServer(cfg, registration, roamer, locations)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Println("ocpigw listening on", cfg.ListenAddr)
		log.Fatal(httpServer.ListenAndServe())
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = httpServer.Shutdown(ctx2)
	log.Println("ocpigw shutdown complete")
}

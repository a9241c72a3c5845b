package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"ocpigw/internal/config"
	"ocpigw/internal/db"
	"ocpigw/internal/models"
	"ocpigw/internal/ocpi"
	"ocpigw/internal/repo"
	"ocpigw/internal/security"
)

func main() {
	countryCode := flag.String("country", "DE", "partner country code")
	partyId := flag.String("party", "EMS", "partner party id")
	role := flag.String("role", "EMSP", "partner role (CPO|EMSP)")
	name := flag.String("name", "", "partner display name")
	version := flag.String("version", "", "pre-committed OCPI version (defaults to configured)")

	locationId := flag.String("location", "", "optional location id to seed a tariff for")
	pricePerKwh := flag.Float64("price_per_kwh", 0, "per-kWh price for the location's active tariff")
	currency := flag.String("currency", "EUR", "tariff currency")
	ocpiTariffId := flag.String("ocpi_tariff_id", "", "roaming tariff id to link the seeded tariff to")
	flag.Parse()

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()

	partners := repo.NewPartnersRepo(d.Pool)
	tariffs := repo.NewTariffsRepo(d.Pool)

	// Token A: handed to the partner out of band, presented on first contact.
	tokenA := security.NewToken()
	preCommitted := *version
	if preCommitted == "" {
		preCommitted = cfg.RequiredVersion
	}

	err = partners.Create(ctx, ocpi.Partner{
		CountryCode:       *countryCode,
		PartyID:           *partyId,
		Role:              ocpi.Role(*role),
		Owner:             ocpi.Identity{CountryCode: cfg.CountryCode, PartyID: cfg.PartyID},
		Name:              *name,
		IncomingToken:     tokenA,
		NegotiatedVersion: preCommitted,
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Seeded partner %s*%s*%s, token A: %s\n", *countryCode, *partyId, *role, tokenA)

	if *locationId != "" && *pricePerKwh > 0 {
		tariffId, err := tariffs.UpsertActiveForLocation(ctx, *locationId, *pricePerKwh, *currency)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("Seeded tariff:", tariffId)

		if *ocpiTariffId != "" {
			err = tariffs.LinkOcpi(ctx, models.OcpiTariff{
				CountryCode: cfg.CountryCode,
				PartyId:     cfg.PartyID,
				Id:          *ocpiTariffId,
				TariffId:    tariffId,
			})
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println("Linked roaming tariff:", *ocpiTariffId)
		}
	}
}

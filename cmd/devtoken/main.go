// Command devtoken mints bearer tokens for local development and testing.
//
//	JWT_SECRET=... devtoken -principal ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Priya8975/event-registry/internal/domain"
	"github.com/Priya8975/event-registry/internal/identity"
	"github.com/caarlos0/env/v11"
)

type tokenEnv struct {
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"event-registry"`
}

func main() {
	principal := flag.String("principal", "", "principal to issue the token for")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	var cfg tokenEnv
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}

	token, err := identity.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer).
		Issue(domain.Principal(*principal), *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	fmt.Fprintln(os.Stdout, token)
}

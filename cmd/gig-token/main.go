package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gigboard/gigboard/src/gigs/identity"
)

var (
	userFlag   = flag.String("user", "", "Username carried by the credential")
	roleFlag   = flag.String("role", "freelancer", "business|freelancer")
	idFlag     = flag.String("id", "", "Principal id (subject); random when empty")
	emailFlag  = flag.String("email", "", "Contact email claim")
	ttlFlag    = flag.Duration("ttl", 24*time.Hour, "Credential lifetime")
	issuerFlag = flag.String("issuer", os.Getenv("JWT_ISSUER"), "Issuer claim")
)

func main() {
	log.SetFlags(0)
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	p, err := principalFromFlags()
	if err != nil {
		log.Fatalf("gig-token: %v", err)
	}
	if len(secret) < 32 {
		log.Fatal("gig-token: JWT_SECRET must be set to at least 32 bytes")
	}

	tok, err := identity.Issue(p, []byte(secret), *issuerFlag, *ttlFlag)
	if err != nil {
		log.Fatalf("gig-token: sign: %v", err)
	}
	fmt.Println(tok)
}

func principalFromFlags() (identity.Principal, error) {
	user := strings.TrimSpace(*userFlag)
	if user == "" {
		return identity.Principal{}, errors.New("-user is required")
	}
	role := identity.Role(strings.ToLower(*roleFlag))
	if !role.Valid() {
		return identity.Principal{}, fmt.Errorf("unknown role %q", *roleFlag)
	}
	if *ttlFlag <= 0 {
		return identity.Principal{}, errors.New("-ttl must be positive")
	}
	id := strings.TrimSpace(*idFlag)
	if id == "" {
		id = uuid.NewString()
	}
	return identity.Principal{ID: id, Username: user, Role: role, Email: strings.TrimSpace(*emailFlag)}, nil
}

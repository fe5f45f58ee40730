package main

import (
	"errors"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/jrsteele09/storefront-admin/api/apifake"
	"github.com/jrsteele09/storefront-admin/token"
	"github.com/jrsteele09/storefront-admin/users"
	fakeuserrepo "github.com/jrsteele09/storefront-admin/users/repofake"
	"github.com/rs/zerolog/log"
)

// demo accounts for FAKE_API mode
var demoAccounts = []struct {
	profile  users.Profile
	password string
}{
	{users.Profile{Email: "admin@example.com", FirstName: "Ada", LastName: "Admin", Role: users.RoleAdmin}, "Admin1234"},
	{users.Profile{Email: "shopper@example.com", FirstName: "Sam", LastName: "Shopper", Role: users.RoleUser}, "Shopper1234"},
}

type fakeAPI struct {
	URL    string
	server *http.Server
}

func (f *fakeAPI) Close() {
	_ = f.server.Close()
}

// startFakeAPI serves the storefront auth endpoints on a loopback port
func startFakeAPI() (*fakeAPI, error) {
	fake := apifake.New(fakeuserrepo.NewFakeUserRepo(), token.NewIssuer(uuid.NewString(), "storefront-fake"))
	for _, account := range demoAccounts {
		if _, err := fake.Seed(account.profile, account.password); err != nil {
			return nil, err
		}
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	srv := &http.Server{Handler: fake}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Msg("fake api stopped")
		}
	}()

	url := "http://" + listener.Addr().String()
	log.Warn().Str("url", url).Msg("FAKE_API enabled: using the in-process storefront API with demo accounts")
	return &fakeAPI{URL: url, server: srv}, nil
}

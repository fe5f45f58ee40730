package config

import "time"

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL returns the storefront REST API root (e.g. "https://shop.example.com/api")
func (API) GetAPIBaseURL() string {
	return GetEnv("API_BASE_URL", "http://localhost:5000/api")
}

func (API) GetAPITimeout() time.Duration {
	return GetEnvDuration("API_TIMEOUT", 10*time.Second)
}

// GetFakeAPI serves the auth endpoints from an in-process fake instead of API_BASE_URL
func (API) GetFakeAPI() bool {
	return GetEnvBool("FAKE_API", false)
}

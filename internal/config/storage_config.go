package config

type StorageConfig interface {
	GetTokenStore() string
	GetTokenFile() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKey() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

// GetTokenStore selects the token backend: memory, file or redis
func (Storage) GetTokenStore() string {
	return GetEnv("TOKEN_STORE", "file")
}

func (Storage) GetTokenFile() string {
	return GetEnv("TOKEN_FILE", "./data/session.json")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Storage) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Storage) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

func (Storage) GetRedisKey() string {
	return GetEnv("REDIS_KEY", "storefront-admin:session")
}

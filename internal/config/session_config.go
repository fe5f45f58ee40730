package config

type SessionConfig interface {
	GetAdminLoginPath() string
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetAdminLoginPath() string {
	return GetEnv("ADMIN_LOGIN_PATH", "/admin/login")
}

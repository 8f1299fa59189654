package config

import "time"

const (
	DefaultAPIURL  = "https://www.vendus.pt/ws/v1.1/"
	DefaultTimeout = 30 * time.Second
)

type Config struct {
	APIKey  string
	APIURL  string
	Timeout time.Duration
}

// URL возвращает адрес API, по умолчанию - рабочий адрес Vendus
func (c Config) URL() string {
	if c.APIURL == "" {
		return DefaultAPIURL
	}
	return c.APIURL
}

package config

import "time"

const DefaultTTL = 10 * time.Minute

type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

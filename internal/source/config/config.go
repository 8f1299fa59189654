package config

// Config - доступ к S3-совместимому хранилищу, откуда читаются файлы SAF-T
type Config struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

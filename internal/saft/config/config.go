package config

const (
	DefaultCountry  = "PT"
	DefaultLineMode = "single"
)

type Config struct {
	// Country - профиль SAF-T, если у компании страна не указана
	Country  string
	LineMode string
}

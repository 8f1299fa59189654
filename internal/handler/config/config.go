package config

const (
	DefaultServerAddr    = ":8080"
	DefaultMaxUploadSize = 64 << 20
)

type Config struct {
	ServerAddr string
	// MaxUploadSize - предел размера загружаемого файла SAF-T, байт
	MaxUploadSize int64
	// LogBodyLimit - сколько байт тела запроса и ответа попадает в лог
	LogBodyLimit int
}

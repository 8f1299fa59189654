package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	handlerConfig "github.com/iurnickita/vendussync/internal/handler/config"
	lockConfig "github.com/iurnickita/vendussync/internal/lock/config"
	loggerConfig "github.com/iurnickita/vendussync/internal/logger/config"
	saftConfig "github.com/iurnickita/vendussync/internal/saft/config"
	serviceConfig "github.com/iurnickita/vendussync/internal/service/config"
	vendusConfig "github.com/iurnickita/vendussync/internal/service/vendusclient/config"
	sourceConfig "github.com/iurnickita/vendussync/internal/source/config"
	storeConfig "github.com/iurnickita/vendussync/internal/store/config"
)

// EnvPrefix: VENDUSSYNC_VENDUS_API_KEY перекрывает vendus.api_key
const EnvPrefix = "VENDUSSYNC"

type Config struct {
	Handler handlerConfig.Config
	Service serviceConfig.Config
	Store   storeConfig.Config
	Logger  loggerConfig.Config
	Lock    lockConfig.Config
	Source  sourceConfig.Config
}

// NewViper - viper с умолчаниями и переменными окружения, без файла
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.addr", handlerConfig.DefaultServerAddr)
	v.SetDefault("server.max_upload_size", handlerConfig.DefaultMaxUploadSize)
	v.SetDefault("server.log_body_limit", 512)
	v.SetDefault("vendus.api_url", vendusConfig.DefaultAPIURL)
	v.SetDefault("vendus.timeout", vendusConfig.DefaultTimeout)
	v.SetDefault("vendus.per_page", serviceConfig.DefaultPerPage)
	v.SetDefault("vendus.backfill_references", false)
	v.SetDefault("saft.country", saftConfig.DefaultCountry)
	v.SetDefault("saft.line_mode", saftConfig.DefaultLineMode)
	v.SetDefault("log.level", "info")
	v.SetDefault("lock.ttl", lockConfig.DefaultTTL)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load читает файл path (если задан), затем окружение поверх него
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	return Config{
		Handler: handlerConfig.Config{
			ServerAddr:    v.GetString("server.addr"),
			MaxUploadSize: v.GetInt64("server.max_upload_size"),
			LogBodyLimit:  v.GetInt("server.log_body_limit"),
		},
		Service: serviceConfig.Config{
			Vendus: vendusConfig.Config{
				APIKey:  v.GetString("vendus.api_key"),
				APIURL:  v.GetString("vendus.api_url"),
				Timeout: v.GetDuration("vendus.timeout"),
			},
			SAFT: saftConfig.Config{
				Country:  v.GetString("saft.country"),
				LineMode: v.GetString("saft.line_mode"),
			},
			PerPage:            v.GetInt("vendus.per_page"),
			BackfillReferences: v.GetBool("vendus.backfill_references"),
		},
		Store: storeConfig.Config{
			DBDsn: v.GetString("database.dsn"),
		},
		Logger: loggerConfig.Config{
			LogLevel:    v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
		Lock: lockConfig.Config{
			RedisAddr:     v.GetString("redis.addr"),
			RedisPassword: v.GetString("redis.password"),
			RedisDB:       v.GetInt("redis.db"),
			TTL:           v.GetDuration("lock.ttl"),
		},
		Source: sourceConfig.Config{
			Region:       v.GetString("s3.region"),
			Endpoint:     v.GetString("s3.endpoint"),
			AccessKey:    v.GetString("s3.access_key"),
			SecretKey:    v.GetString("s3.secret_key"),
			UsePathStyle: v.GetBool("s3.use_path_style"),
		},
	}, nil
}

package config

type Config struct {
	LogLevel string
	// Development - человекочитаемый вывод вместо JSON
	Development bool
}

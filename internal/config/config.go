package config // package config loads application configuration from environment variables

import (
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  A Config is built once in main and passed by
// value afterwards; nothing writes to it once the server is running.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	MigrateOnStart bool          // apply embedded migrations before serving
	JWTSecret      string        // secret used to sign session tokens
	SessionTTL     time.Duration // session token time-to-live
	BcryptCost     int           // bcrypt cost for password hashing
	GoogleClientID string        // expected audience of Google ID tokens
	UploadDir      string        // where enrollment evidence images are written
	RabbitURL      string        // AMQP broker for status-change notifications
	SMTP           SMTPConfig
}

// SMTPConfig describes the outgoing mail relay used by the notification
// consumer.
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string // display sender, e.g. `"JadPai" <events@example.com>`
	// MaxPerMinute throttles outgoing mail; zero disables the throttle.
	MaxPerMinute int
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),      // environment (dev/test/prod)
		Port:           must("APP_PORT"),     // port to bind the HTTP server
		DBUser:         must("DB_USER"),      // database user
		DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:         must("DB_HOST"),      // database host
		DBPort:         must("DB_PORT"),      // database port
		DBName:         must("DB_NAME"),      // database name
		MigrateOnStart: envBool("MIGRATE_ON_START", false),
		JWTSecret:      must("JWT_SECRET"), // secret used for signing JWTs
		SessionTTL:     time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 60)) * time.Minute,
		BcryptCost:     envInt("BCRYPT_COST", 12),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		UploadDir:      envStr("UPLOAD_DIR", "public/uploads"),
		RabbitURL:      rabbitURL(),
		SMTP: SMTPConfig{
			Host:     envStr("SMTP_HOST", "smtp.gmail.com"),
			Port:     envStr("SMTP_PORT", "587"),
			User:     os.Getenv("EMAIL_USER"),
			Password: os.Getenv("EMAIL_PASS"),
			From:     os.Getenv("MAIL_FROM"),

			MaxPerMinute: envInt("SMTP_MAX_PER_MINUTE", 30),
		},
	}
}

// rabbitURL honours both RABBITMQ_URL and the older AMQP_URL name.  An empty
// result disables notification publishing.
func rabbitURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

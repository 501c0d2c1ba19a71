package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address            string        `mapstructure:"address"`
		DebugAddress       string        `mapstructure:"debugAddress"`
		Host               string        `mapstructure:"host"`
		ShutdownTimeout    time.Duration `mapstructure:"shutdownTimeout"`
		JWTExpirationDelta time.Duration `mapstructure:"jwtExpirationDelta"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"` // postgres | inmem
		Host          string `mapstructure:"host"`
		Port          string `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
	}

	StorageConfig struct {
		Backend            string `mapstructure:"backend"` // local | gcs
		UploadDir          string `mapstructure:"uploadDir"`
		GCSBucket          string `mapstructure:"gcsBucket"`
		GCSCredentialsFile string `mapstructure:"gcsCredentialsFile"`
	}

	NotificationConfig struct {
		// AdminEmails restricts admin notifications to these accounts. Empty means every admin.
		AdminEmails []string `mapstructure:"adminEmails"`
	}

	Config struct {
		Env              string `mapstructure:"env"`
		Build            string `mapstructure:"build"`
		AppName          string `mapstructure:"appName"`
		Debug            bool   `mapstructure:"debug"`
		TestMode         bool   `mapstructure:"testMode"`
		SecretKey        string `mapstructure:"secretKey"`
		DefaultFromEmail string `mapstructure:"defaultFromEmail"`
		FrontendBaseURL  string `mapstructure:"frontendBaseURL"`
		SendgridApiKey   string `mapstructure:"sendgridApiKey"`
		RollbarToken     string `mapstructure:"rollbarToken"`

		Server       ServerConfig       `mapstructure:"server"`
		Database     DatabaseConfig     `mapstructure:"database"`
		Storage      StorageConfig      `mapstructure:"storage"`
		Notification NotificationConfig `mapstructure:"notification"`
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) FromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}

func (c *Config) Site() SiteData {
	return SiteData{AppName: c.AppName, FrontendBaseURL: c.FrontendBaseURL}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Academia")
	v.SetDefault("secretKey", "d6!k2x=8ve#q0$n)ylp@w3&r7sz1m(4jh^9ua+ctf5bo_g-i")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 30*time.Minute)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "academia")
	v.SetDefault("database.user", "academia")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.uploadDir", "uploads")
	v.SetDefault("storage.gcsBucket", "")
	v.SetDefault("storage.gcsCredentialsFile", "")

	v.SetDefault("notification.adminEmails", []string{})
}

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed by the uppercased env name, eg. `PROD_DATABASE_HOST`.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetDefault("env", env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(conf, hook); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	for i, email := range conf.Notification.AdminEmails {
		conf.Notification.AdminEmails[i] = CleanString(email, true /* lower */)
	}
	return conf
}

package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	SQLiteStore    = "sqlite"
	FirestoreStore = "firestore"
)

type Config struct {
	Addr                 string
	Store                string
	DBUrl                string
	FirestoreProject     string
	FirestoreCredentials string
	TokenSecret          string
	TokenTTL             time.Duration
	Debug                bool
	LogFile              string
	PublicDir            string
	PrivateDir           string
	OpenAIKey            string
	OpenAIModel          string
}

// New returns a viper instance with defaults and QFORM_* environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 80)
	v.SetDefault("store", SQLiteStore)
	v.SetDefault("db-url", "qform.sqlite")
	v.SetDefault("token-ttl", 120)
	v.SetDefault("public-dir", "public")
	v.SetDefault("private-dir", "private")
	v.SetDefault("openai-model", "gpt-3.5-turbo")

	v.SetEnvPrefix("QFORM") // e.g. QFORM_TOKEN_SECRET
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags declares the command line flags and binds them to v.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	flags.String("host", "0.0.0.0", "listen host name")
	flags.Uint("port", 80, "listen port number")
	flags.String("store", SQLiteStore, "document store backend (sqlite or firestore)")
	flags.String("db-url", "qform.sqlite", "path to SQLite3 DB file")
	flags.String("firestore-project", "", "Google Cloud project id of the Firestore database")
	flags.String("firestore-credentials", "", "path to a service account key file")
	flags.String("token-secret", "", "secret key for token encryption and decryption")
	flags.Uint("token-ttl", 120, "token TTL in seconds")
	flags.Bool("debug", false, "log at DEBUG level")
	flags.String("log-file", "", "also write logs to this file, rotated")
	flags.String("public-dir", "public", "directory of public static files")
	flags.String("private-dir", "private", "directory of admin static files")
	flags.String("openai-key", "", "OpenAI API key, enables conversational sessions")
	flags.String("openai-model", "gpt-3.5-turbo", "OpenAI chat model")
	return v.BindPFlags(flags)
}

// ReadFile merges a YAML config file into v. An empty path is ignored.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func Load(v *viper.Viper) (cfg Config, err error) {
	cfg.Addr = net.JoinHostPort(v.GetString("host"), strconv.Itoa(v.GetInt("port")))
	cfg.Store = v.GetString("store")
	cfg.DBUrl = v.GetString("db-url")
	cfg.FirestoreProject = v.GetString("firestore-project")
	cfg.FirestoreCredentials = v.GetString("firestore-credentials")
	cfg.TokenSecret = v.GetString("token-secret")
	cfg.TokenTTL = time.Duration(v.GetInt("token-ttl")) * time.Second
	cfg.Debug = v.GetBool("debug")
	cfg.LogFile = v.GetString("log-file")
	cfg.PublicDir = v.GetString("public-dir")
	cfg.PrivateDir = v.GetString("private-dir")
	cfg.OpenAIKey = v.GetString("openai-key")
	cfg.OpenAIModel = v.GetString("openai-model")

	switch {
	case cfg.Store != SQLiteStore && cfg.Store != FirestoreStore:
		err = fmt.Errorf("unknown store %q", cfg.Store)
	case cfg.Store == FirestoreStore && cfg.FirestoreProject == "":
		err = errors.New("missing parameter firestore-project")
	}
	return
}

// CheckServe reports settings that are optional for maintenance commands but required to serve.
func (cfg Config) CheckServe() error {
	if cfg.TokenSecret == "" {
		return errors.New("missing parameter token-secret")
	}
	return nil
}

// Watch reloads the configuration whenever the config file changes.
func Watch(v *viper.Viper, onChange func(Config, error)) {
	v.OnConfigChange(func(fsnotify.Event) {
		onChange(Load(v))
	})
	v.WatchConfig()
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

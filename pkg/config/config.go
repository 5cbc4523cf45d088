package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zonas IANA embebidas para contenedores sin /usr/share/zoneinfo

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App  AppConfig
	DB   DBConfig
	JWT  JWTConfig
	HTTP HTTPConfig
	SRI  SRIConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// SRIConfig datos del emisor, certificado y parámetros de los WS del SRI (Ecuador).
type SRIConfig struct {
	RUC                    string
	LegalName              string
	CommercialName         string
	HeadOfficeAddress      string
	EstablishmentAddress   string
	Establishment          string // 3 dígitos
	EmissionPoint          string // 3 dígitos
	SpecialTaxpayer        string // vacío si no aplica
	RequiredToKeepAccounts bool
	Environment            string // "1" = Pruebas, "2" = Producción
	CertPath               string // Ruta al .p12
	CertPassword           string
	PollAttempts           int
	PollInterval           time.Duration
	RatePerSecond          float64
	StorageDir             string // raíz de xml_generados, xml_firmados, ...
	SequenceBackend        string // "file" o "postgres"
	SequenceStart          int64  // último secuencial usado antes de la primera emisión
	LedgerPath             string // libro de emisiones .xlsx (vacío = desactivado)
	TimeZone               string // zona horaria de la fecha de emisión (IANA)
}

// Series identificador de la serie de numeración (RUC-estab+ptoEmi).
func (c SRIConfig) Series() string {
	return c.RUC + "-" + c.Establishment + c.EmissionPoint
}

// Location zona horaria en la que se fecha cada comprobante.
func (c SRIConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("config: SRI_ZONA_HORARIA %q inválida: %w", c.TimeZone, err)
	}
	return loc, nil
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
}

// Enabled indica si hay datos suficientes para conectar.
func (c DBConfig) Enabled() bool {
	return c.DatabaseURL != "" || c.Host != ""
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, SRI_RUC, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.MergeInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "facturador-sri"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", ""),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "facturador_sri"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 10),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "facturador-sri"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		SRI: SRIConfig{
			RUC:                    getString(v, "SRI_RUC", ""),
			LegalName:              getString(v, "SRI_RAZON_SOCIAL", ""),
			CommercialName:         getString(v, "SRI_NOMBRE_COMERCIAL", ""),
			HeadOfficeAddress:      getString(v, "SRI_DIR_MATRIZ", ""),
			EstablishmentAddress:   getString(v, "SRI_DIR_ESTABLECIMIENTO", ""),
			Establishment:          getString(v, "SRI_ESTABLECIMIENTO", "001"),
			EmissionPoint:          getString(v, "SRI_PUNTO_EMISION", "001"),
			SpecialTaxpayer:        getString(v, "SRI_CONTRIBUYENTE_ESPECIAL", ""),
			RequiredToKeepAccounts: strings.EqualFold(getString(v, "SRI_OBLIGADO_CONTABILIDAD", "NO"), "SI"),
			Environment:            getString(v, "SRI_AMBIENTE", "1"),
			CertPath:               getString(v, "SRI_CERT_PATH", ""),
			CertPassword:           getString(v, "SRI_CERT_PASSWORD", ""),
			PollAttempts:           getInt(v, "SRI_POLL_ATTEMPTS", 10),
			PollInterval:           time.Duration(getInt(v, "SRI_POLL_INTERVAL_SECONDS", 3)) * time.Second,
			RatePerSecond:          getFloat(v, "SRI_RATE_PER_SECOND", 5),
			StorageDir:             getString(v, "SRI_STORAGE_DIR", "./data"),
			SequenceBackend:        getString(v, "SRI_SEQUENCE_BACKEND", "file"),
			SequenceStart:          int64(getInt(v, "SRI_SECUENCIAL_INICIAL", 0)),
			LedgerPath:             getString(v, "SRI_LEDGER_PATH", ""),
			TimeZone:               getString(v, "SRI_ZONA_HORARIA", "America/Guayaquil"),
		},
	}
	if err := cfg.SRI.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c SRIConfig) validate() error {
	if c.Environment != "1" && c.Environment != "2" {
		return fmt.Errorf("config: SRI_AMBIENTE debe ser 1 (pruebas) o 2 (producción), se recibió %q", c.Environment)
	}
	if len(c.Establishment) != 3 || len(c.EmissionPoint) != 3 {
		return fmt.Errorf("config: SRI_ESTABLECIMIENTO y SRI_PUNTO_EMISION deben tener 3 dígitos")
	}
	switch c.SequenceBackend {
	case "file", "postgres":
	default:
		return fmt.Errorf("config: SRI_SEQUENCE_BACKEND %q no soportado (file|postgres)", c.SequenceBackend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getFloat(v *viper.Viper, key string, def float64) float64 {
	if v.IsSet(key) {
		f, err := strconv.ParseFloat(strings.TrimSpace(v.GetString(key)), 64)
		if err != nil {
			return def
		}
		return f
	}
	return def
}

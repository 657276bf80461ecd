package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config repräsentiert die Hauptkonfiguration der Anwendung
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Faces     FacesConfig     `mapstructure:"faces"`
	FaceAPI   FaceAPIConfig   `mapstructure:"face_api"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	Camera    CameraConfig    `mapstructure:"camera"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
	I18n      I18nConfig      `mapstructure:"i18n"`
}

// ServerConfig enthält Server-bezogene Einstellungen
type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	DataDir       string `mapstructure:"data_dir"`
	UploadDir     string `mapstructure:"upload_dir"`     // Ablage für hochgeladene Bilder
	SessionSecret string `mapstructure:"session_secret"` // Schlüssel für den Cookie-Store
}

// LogConfig enthält Log-Einstellungen
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DBConfig enthält Datenbankeinstellungen (SQLite)
type DBConfig struct {
	File string `mapstructure:"file"`
}

// FacesConfig steuert die Ähnlichkeitssuche im Known-Face-Store
type FacesConfig struct {
	// SimilarityStrategy ist "euclidean" oder "index"; die Wahl gilt für das
	// gesamte Deployment und darf nicht gemischt werden.
	SimilarityStrategy  string  `mapstructure:"similarity_strategy"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

// FaceAPIConfig enthält Einstellungen für den externen Embedding-Dienst
type FaceAPIConfig struct {
	URL              string  `mapstructure:"url"`
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	DetProbThreshold float64 `mapstructure:"det_prob_threshold"`
}

// LLMConfig enthält Einstellungen für den Textgenerierungsdienst
type LLMConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DetectorConfig enthält Einstellungen für die Objekterkennung
type DetectorConfig struct {
	Method              string   `mapstructure:"method"` // "dnn" oder "hog"
	ModelPath           string   `mapstructure:"model_path"`
	ConfigPath          string   `mapstructure:"config_path"`
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold"`
	Denylist            []string `mapstructure:"denylist"` // Begriffe, die nie nach außen gelangen
}

// CameraConfig enthält Einstellungen für die Live-Erfassung
type CameraConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxProbe    int  `mapstructure:"max_probe"`    // Höchster zu prüfender Kamera-Index
	JPEGQuality int  `mapstructure:"jpeg_quality"` // Qualität des veröffentlichten Frames
}

// MQTTConfig enthält die Konfiguration für den MQTT-Publisher
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
}

// CleanupConfig enthält Bereinigungseinstellungen für abgelegte Uploads
type CleanupConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

// I18nConfig enthält Einstellungen für lokalisierte Dienstmeldungen
type I18nConfig struct {
	DefaultLanguage string `mapstructure:"default_language"`
	LocalesDir      string `mapstructure:"locales_dir"`
}

// Load lädt die Konfiguration aus Datei, Umgebungsvariablen und Standardwerten
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Infof("Config loaded from %s", configPath)
		}
	}

	// Umgebungsvariablen überlagern die Konfiguration
	v.AutomaticEnv()
	v.SetEnvPrefix("RECALLME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("failed to create required directories: %w", err)
	}

	return &cfg, nil
}

// validate prüft Konfigurationswerte, deren Fehlinterpretation gemischte
// Ähnlichkeitssemantiken erzeugen würde.
func validate(cfg *Config) error {
	switch cfg.Faces.SimilarityStrategy {
	case "euclidean", "index":
	default:
		return fmt.Errorf("invalid faces.similarity_strategy %q (must be 'euclidean' or 'index')", cfg.Faces.SimilarityStrategy)
	}
	if cfg.Faces.SimilarityThreshold <= 0 {
		return fmt.Errorf("faces.similarity_threshold must be positive, got %f", cfg.Faces.SimilarityThreshold)
	}
	return nil
}

// setDefaults legt Standardwerte für die Konfiguration fest
func setDefaults(v *viper.Viper) {
	// Server-Standardwerte
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", "/data")
	v.SetDefault("server.upload_dir", "/data/uploads")
	v.SetDefault("server.session_secret", "recallme-session-secret")

	// Log-Standardwerte
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "/data/logs/recallme.log")

	// DB-Standardwerte
	v.SetDefault("db.file", "/data/recallme.db")

	// Ähnlichkeitssuche
	v.SetDefault("faces.similarity_strategy", "euclidean")
	v.SetDefault("faces.similarity_threshold", 0.55)

	// Embedding-Dienst
	v.SetDefault("face_api.url", "http://face-api:18081")
	v.SetDefault("face_api.timeout_seconds", 30)
	v.SetDefault("face_api.det_prob_threshold", 0.8)

	// LLM-Dienst
	v.SetDefault("llm.timeout_seconds", 60)

	// Objekterkennung
	v.SetDefault("detector.method", "dnn")
	v.SetDefault("detector.confidence_threshold", 0.5)
	v.SetDefault("detector.denylist", []string{
		"toilet", "urinal", "bathtub", "knife", "scissors", "gun", "weapon",
	})

	// Kamera
	v.SetDefault("camera.enabled", true)
	v.SetDefault("camera.max_probe", 10)
	v.SetDefault("camera.jpeg_quality", 80)

	// MQTT-Standardwerte
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "recallme-go")
	v.SetDefault("mqtt.topic", "recallme/events")

	// Cleanup-Standardwerte
	v.SetDefault("cleanup.retention_days", 30)

	// i18n-Standardwerte
	v.SetDefault("i18n.default_language", "en")
	v.SetDefault("i18n.locales_dir", "./web/locales")
}

// ensureDirectories stellt sicher, dass alle erforderlichen Verzeichnisse existieren
func ensureDirectories(cfg *Config) error {
	if cfg.Server.DataDir != "" {
		if err := os.MkdirAll(cfg.Server.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if err := os.MkdirAll(cfg.Server.UploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	logDir := filepath.Dir(cfg.Log.File)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	if cfg.DB.File != "" {
		dbDir := filepath.Dir(cfg.DB.File)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	return nil
}

package common

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdf-text-extractor/constants"
)

// Config holds all application configuration
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Database DatabaseConfig `yaml:"database"`
	OCR      OCRConfig      `yaml:"ocr"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// PipelineConfig holds the knobs of an extraction run
type PipelineConfig struct {
	InputDir        string        `yaml:"input_dir"`
	Workers         int           `yaml:"workers"`
	QueueSize       int           `yaml:"queue_size"`
	Force           bool          `yaml:"force"`
	TextOnly        bool          `yaml:"text_only"`
	OCROnly         bool          `yaml:"ocr_only"`
	GPU             bool          `yaml:"gpu"`
	SkipHidden      bool          `yaml:"skip_hidden"`
	ExportText      string        `yaml:"export_text"`
	BatchSize       int           `yaml:"batch_size"`
	FlushInterval   time.Duration `yaml:"flush_interval"`
	DocumentTimeout time.Duration `yaml:"document_timeout"`
	HashAlgorithm   string        `yaml:"hash_algorithm"`
	HashMode        string        `yaml:"hash_mode"`
	MinTextChars    int           `yaml:"min_text_chars"`
	MinCharsPerPage int           `yaml:"min_chars_per_page"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"` // file path for SQLite, postgres:// URL for PostgreSQL
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
	BusyTimeout      time.Duration `yaml:"busy_timeout"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Direct      string `yaml:"direct"` // "pdftotext" | "native"
	Engine      string `yaml:"engine"` // "tesseract" | "gosseract"
	Pdftotext   string `yaml:"pdftotext"`
	Pdftoppm    string `yaml:"pdftoppm"`
	Tesseract   string `yaml:"tesseract"`
	Lang        string `yaml:"lang"`
	DPI         int    `yaml:"dpi"`
	MaxPages    int    `yaml:"max_pages"`
	TessdataDir string `yaml:"tessdata_dir"`
	ScratchDir  string `yaml:"scratch_dir"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" | "text"
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Workers:         4,
			QueueSize:       256,
			SkipHidden:      true,
			BatchSize:       32,
			FlushInterval:   2 * time.Second,
			HashAlgorithm:   string(constants.HashSHA256),
			HashMode:        string(constants.HashModeFull),
			MinTextChars:    50,
			MinCharsPerPage: 10,
		},
		Database: DatabaseConfig{
			DSN:             "pdf_extraction.db",
			MaxConns:        int32(max(4, runtime.NumCPU())),
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
			BusyTimeout:     10 * time.Second,
		},
		OCR: OCRConfig{
			Direct:    "pdftotext",
			Engine:    "tesseract",
			Pdftotext: "pdftotext",
			Pdftoppm:  "pdftoppm",
			Tesseract: "tesseract",
			Lang:      "eng",
			DPI:       300,
		},
		Server: ServerConfig{
			GRPCAddr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig layers defaults, the optional YAML file at path, then PDFX_* environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	p := &c.Pipeline
	p.InputDir = getEnv("PDFX_INPUT_DIR", p.InputDir)
	p.Workers = getEnvAsInt("PDFX_WORKERS", p.Workers)
	p.QueueSize = getEnvAsInt("PDFX_QUEUE_SIZE", p.QueueSize)
	p.Force = getEnvAsBool("PDFX_FORCE", p.Force)
	p.TextOnly = getEnvAsBool("PDFX_TEXT_ONLY", p.TextOnly)
	p.OCROnly = getEnvAsBool("PDFX_OCR_ONLY", p.OCROnly)
	p.GPU = getEnvAsBool("PDFX_GPU", p.GPU)
	p.SkipHidden = getEnvAsBool("PDFX_SKIP_HIDDEN", p.SkipHidden)
	p.ExportText = getEnv("PDFX_EXPORT_TEXT", p.ExportText)
	p.BatchSize = getEnvAsInt("PDFX_BATCH_SIZE", p.BatchSize)
	p.FlushInterval = getEnvAsDuration("PDFX_FLUSH_INTERVAL", p.FlushInterval)
	p.DocumentTimeout = getEnvAsDuration("PDFX_DOCUMENT_TIMEOUT", p.DocumentTimeout)
	p.HashAlgorithm = getEnv("PDFX_HASH_ALGORITHM", p.HashAlgorithm)
	p.HashMode = getEnv("PDFX_HASH_MODE", p.HashMode)
	p.MinTextChars = getEnvAsInt("PDFX_MIN_TEXT_CHARS", p.MinTextChars)
	p.MinCharsPerPage = getEnvAsInt("PDFX_MIN_CHARS_PER_PAGE", p.MinCharsPerPage)

	d := &c.Database
	d.DSN = getEnv("PDFX_DB", d.DSN)
	d.MaxConns = getEnvAsInt32("PDFX_DB_MAX_CONNS", d.MaxConns)
	d.MinConns = getEnvAsInt32("PDFX_DB_MIN_CONNS", d.MinConns)
	d.MaxConnLifetime = getEnvAsDuration("PDFX_DB_MAX_CONN_LIFETIME", d.MaxConnLifetime)
	d.MaxConnIdleTime = getEnvAsDuration("PDFX_DB_MAX_CONN_IDLE_TIME", d.MaxConnIdleTime)
	d.DialTimeout = getEnvAsDuration("PDFX_DB_DIAL_TIMEOUT", d.DialTimeout)
	d.StatementTimeout = getEnvAsDuration("PDFX_DB_STATEMENT_TIMEOUT", d.StatementTimeout)
	d.BusyTimeout = getEnvAsDuration("PDFX_DB_BUSY_TIMEOUT", d.BusyTimeout)

	o := &c.OCR
	o.Direct = getEnv("PDFX_DIRECT", o.Direct)
	o.Engine = getEnv("PDFX_OCR_ENGINE", o.Engine)
	o.Pdftotext = getEnv("PDFX_PDFTOTEXT", o.Pdftotext)
	o.Pdftoppm = getEnv("PDFX_PDFTOPPM", o.Pdftoppm)
	o.Tesseract = getEnv("PDFX_TESSERACT", o.Tesseract)
	o.Lang = getEnv("PDFX_OCR_LANG", o.Lang)
	o.DPI = getEnvAsInt("PDFX_OCR_DPI", o.DPI)
	o.MaxPages = getEnvAsInt("PDFX_OCR_MAX_PAGES", o.MaxPages)
	o.TessdataDir = getEnv("TESSDATA_PREFIX", o.TessdataDir)
	o.ScratchDir = getEnv("PDFX_SCRATCH_DIR", o.ScratchDir)

	c.Server.GRPCAddr = getEnv("PDFX_GRPC_ADDR", c.Server.GRPCAddr)
	c.Log.Level = getEnv("PDFX_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("PDFX_LOG_FORMAT", c.Log.Format)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("pipeline.workers", c.Pipeline.Workers, Positive)
	v.Field("pipeline.queue_size", c.Pipeline.QueueSize, Positive)
	v.Field("pipeline.batch_size", c.Pipeline.BatchSize, Positive)
	v.Field("pipeline.flush_interval", c.Pipeline.FlushInterval, Positive)
	v.Field("pipeline.document_timeout", c.Pipeline.DocumentTimeout, NonNegative)
	v.Field("pipeline.min_text_chars", c.Pipeline.MinTextChars, NonNegative)
	v.Field("pipeline.min_chars_per_page", c.Pipeline.MinCharsPerPage, NonNegative)
	v.Field("pipeline.hash_algorithm", c.Pipeline.HashAlgorithm, OneOf(string(constants.HashSHA256), string(constants.HashBLAKE2b)))
	v.Field("pipeline.hash_mode", c.Pipeline.HashMode, OneOf(string(constants.HashModeFull), string(constants.HashModeFast)))
	v.Field("database.dsn", c.Database.DSN, Required)
	v.Field("ocr.direct", c.OCR.Direct, OneOf("pdftotext", "native"))
	v.Field("ocr.engine", c.OCR.Engine, OneOf("tesseract", "gosseract"))
	v.Field("ocr.dpi", c.OCR.DPI, Positive)
	v.Field("ocr.max_pages", c.OCR.MaxPages, NonNegative)
	v.Field("log.format", c.Log.Format, OneOf("json", "text"))
	if c.Pipeline.TextOnly && c.Pipeline.OCROnly {
		v.errors = append(v.errors, ValidationError{Field: "pipeline.text_only", Value: true, Message: "cannot be combined with ocr_only"})
	}
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

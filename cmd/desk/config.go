package main

import (
	"fmt"
	"time"
)

type Config struct {
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH,required=true"`
	UploadDir         string        `env:"UPLOAD_DIR,default=uploads"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	Host              string        `env:"HOST,default=localhost"`
	Port              int           `env:"PORT,default=8080"`
	OperatorSecret    string        `env:"OPERATOR_SECRET,required=true"`
	SessionSecret     string        `env:"SESSION_SECRET,required=true"`
	SessionDuration   time.Duration `env:"SESSION_DURATION,default=720h"`
	SecureCookie      bool          `env:"SECURE_COOKIE,default=false"`
	LimitMessages     int           `env:"LIMIT_MESSAGES,default=50"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT,default=30s"`
	MaxContentLength  int           `env:"MAX_CONTENT_LENGTH,default=16777216"`
	IndexBufferSize   int           `env:"INDEX_BUFFER_SIZE,default=1024"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT,default=10s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

func (c Config) Validate() error {
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes, got %d", len(c.SessionSecret))
	}
	if c.LimitMessages <= 0 {
		return fmt.Errorf("LIMIT_MESSAGES must be positive, got %d", c.LimitMessages)
	}
	if c.MaxContentLength <= 0 {
		return fmt.Errorf("MAX_CONTENT_LENGTH must be positive, got %d", c.MaxContentLength)
	}
	if c.IndexBufferSize <= 0 {
		return fmt.Errorf("INDEX_BUFFER_SIZE must be positive, got %d", c.IndexBufferSize)
	}
	return nil
}

// Package config loads typed configuration from environment variables.
//
// A .env file in the working directory is read once on first use. Each
// configuration type is parsed once and cached, so repeated loads of the
// same type return the same values:
//
//	var cfg config.Config
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/njchilds90/htmlguard"
)

var (
	dotenv sync.Once
	mu     sync.Mutex
	cache  = make(map[reflect.Type]any)
)

// Load fills cfg from the environment. The first call for a type parses the
// environment; later calls copy the cached result.
func Load[T any](cfg *T) error {
	dotenv.Do(func() {
		// A missing .env file is the common case.
		_ = godotenv.Load()
	})

	key := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()

	if v, ok := cache[key]; ok {
		*cfg = v.(T)
		return nil
	}

	var out T
	if err := env.Parse(&out); err != nil {
		return fmt.Errorf("config: parse %s: %w", key, err)
	}
	cache[key] = out
	*cfg = out
	return nil
}

// Config holds the settings of the htmlguard command.
type Config struct {
	AllowBlocks     bool `env:"HTMLGUARD_ALLOW_BLOCKS"`
	AllowFormatting bool `env:"HTMLGUARD_ALLOW_FORMATTING"`
	AllowLinks      bool `env:"HTMLGUARD_ALLOW_LINKS"`
	AllowStyles     bool `env:"HTMLGUARD_ALLOW_STYLES"`
	AllowImages     bool `env:"HTMLGUARD_ALLOW_IMAGES"`
	AllowTables     bool `env:"HTMLGUARD_ALLOW_TABLES"`
	AllowMedia      bool `env:"HTMLGUARD_ALLOW_MEDIA"`

	Linkify    bool   `env:"HTMLGUARD_LINKIFY"`
	Markdown   bool   `env:"HTMLGUARD_MARKDOWN"`
	PolicyFile string `env:"HTMLGUARD_POLICY_FILE"`

	LogLevel  string `env:"HTMLGUARD_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"HTMLGUARD_LOG_FORMAT" envDefault:"text"`
}

// Options returns the fragment toggles selected by c.
func (c Config) Options() htmlguard.Options {
	return htmlguard.Options{
		AllowBlocks:     c.AllowBlocks,
		AllowFormatting: c.AllowFormatting,
		AllowLinks:      c.AllowLinks,
		AllowStyles:     c.AllowStyles,
		AllowImages:     c.AllowImages,
		AllowTables:     c.AllowTables,
		AllowMedia:      c.AllowMedia,
	}
}
